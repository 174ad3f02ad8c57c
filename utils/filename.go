package utils

import (
	"strings"

	"uebergabe/models"
)

// ArtifactFilename is Uebergabeprotokoll_<date>_<address>.pdf with every
// character of the address outside [A-Za-z0-9] replaced by an underscore.
// The date keeps its dashes. The result never contains a path separator.
func ArtifactFilename(doc *models.Document) string {
	addr := sanitize(doc.Address, "")
	if addr == "" {
		addr = "Objekt"
	}
	return "Uebergabeprotokoll_" + sanitize(doc.Date, "-") + "_" + addr + ".pdf"
}

// sanitize replaces every rune outside [A-Za-z0-9] and keep with '_'.
func sanitize(s, keep string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune(keep, r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
