package wizard

import (
	"fmt"

	"uebergabe/models"
)

// ImproveRemarks wraps the remarks in the standard acceptance clause. Empty
// remarks stay empty.
func ImproveRemarks(remarks string) string {
	if remarks == "" {
		return ""
	}
	return fmt.Sprintf("Rechtlicher Hinweis: Die Parteien bestätigen, dass der Zustand wie besichtigt akzeptiert wird. "+
		"Zu den Anmerkungen (\"%s\") besteht Einigkeit über die Aufnahme in dieses Protokoll.", remarks)
}

var improveRemarks Edit = edit(func(d *models.Document) error {
	d.Remarks = ImproveRemarks(d.Remarks)
	return nil
})
