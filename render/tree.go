package render

import (
	"fmt"

	"uebergabe/models"
)

type Kind string

const (
	KindHeader        Kind = "header"
	KindMetadata      Kind = "metadata"
	KindOtherParties  Kind = "other-parties"
	KindKeyTable      Kind = "key-table"
	KindSectionTitle  Kind = "section-title"
	KindMeterGrid     Kind = "meter-grid"
	KindMeterCard     Kind = "meter-card"
	KindHeatingTable  Kind = "heating-table"
	KindInventoryGrid Kind = "inventory-grid"
	KindInventoryCard Kind = "inventory-card"
	KindDefectCard    Kind = "defect-card"
	KindPlaceholder   Kind = "placeholder"
	KindFreeText      Kind = "free-text"
	KindSignatures    Kind = "signatures"
	KindPhotoGrid     Kind = "photo-grid"
	KindPhotoTile     Kind = "photo-tile"
)

// Line is one labelled value of a card or grid. Values holds several entries
// for list-valued fields (e.g. all sellers).
type Line struct {
	Label  string
	Values []string
}

type Table struct {
	Header []string
	Rows   [][]string
}

// Block is one unit of the print document. Atomic blocks must end up on a
// single page; grid wrappers are not atomic, their children are.
type Block struct {
	Seq        int
	Kind       Kind
	Atomic     bool
	Title      string
	Subtitle   string
	Lines      []Line
	Table      *Table
	Note       string
	Image      *models.Image
	Signatures []models.Signature
	DocumentID string
	Children   []Block
}

const (
	placeholderNoKeys       = "Keine Schlüssel erfasst."
	placeholderNoMeters     = "Keine Hauptzähler erfasst."
	placeholderNoDefects    = "Keine Mängel festgestellt."
	placeholderNoSignatures = "Noch keine Unterschriften erfasst."
	dash                    = "—"
)

type builder struct {
	seq    int
	blocks []Block
}

func (b *builder) next() int {
	b.seq++
	return b.seq
}

func (b *builder) add(blk Block) {
	blk.Seq = b.next()
	blk.Atomic = true
	b.blocks = append(b.blocks, blk)
}

// grid appends a non-atomic wrapper whose children are atomic. Sequence
// numbers follow document order: the wrapper first, then each child.
func (b *builder) grid(kind Kind, children []Block) {
	wrapper := Block{Seq: b.next(), Kind: kind}
	for _, c := range children {
		c.Seq = b.next()
		c.Atomic = true
		wrapper.Children = append(wrapper.Children, c)
	}
	b.blocks = append(b.blocks, wrapper)
}

// Build turns a document into print blocks in fixed document order. It is a
// pure function of doc.
func Build(doc *models.Document) []Block {
	b := &builder{}
	section := 0
	sectionTitle := func(title string) string {
		section++
		return fmt.Sprintf("%d. %s", section, title)
	}

	b.add(Block{Kind: KindHeader, Title: "Übergabeprotokoll", Subtitle: "Haus- / Wohnungsübergabe"})
	b.add(metadataBlock(doc))
	if others := otherParties(doc); len(others) > 0 {
		b.add(Block{Kind: KindOtherParties, Title: "Weitere Beteiligte", Lines: others})
	}

	b.add(keysBlock(doc, sectionTitle("Schlüsselübergabe")))

	b.add(Block{Kind: KindSectionTitle, Title: sectionTitle("Zählerstände")})
	if len(doc.Meters.Main) == 0 {
		b.add(Block{Kind: KindPlaceholder, Note: placeholderNoMeters})
	} else {
		var cards []Block
		for _, m := range doc.Meters.Main {
			cards = append(cards, meterCard(m))
		}
		b.grid(KindMeterGrid, cards)
	}
	if heating := heatingTable(doc); heating != nil {
		b.add(*heating)
	}

	if len(doc.Inventory.Rooms) > 0 {
		b.add(Block{Kind: KindSectionTitle, Title: sectionTitle("Räume & Inventar")})
		var cards []Block
		for _, r := range doc.Inventory.Rooms {
			cards = append(cards, roomCard(r))
		}
		b.grid(KindInventoryGrid, cards)
	}

	b.add(Block{Kind: KindSectionTitle, Title: sectionTitle("Festgestellte Mängel")})
	if doc.Defects.HasDefects && len(doc.Defects.List) > 0 {
		for _, d := range doc.Defects.List {
			b.add(defectCard(d))
		}
	} else {
		b.add(Block{Kind: KindPlaceholder, Note: placeholderNoDefects})
	}

	b.add(Block{
		Kind:  KindFreeText,
		Title: sectionTitle("Sonstiges"),
		Lines: []Line{
			{Label: "Übergebene Unterlagen", Values: []string{orDefault(doc.Docs, dash)}},
			{Label: "Sonstige Bemerkungen", Values: []string{orDefault(doc.Remarks, "Keine weiteren Bemerkungen.")}},
		},
	})

	sig := Block{Kind: KindSignatures, Title: "Unterschriften", Signatures: doc.Signatures, DocumentID: doc.ID}
	if len(doc.Signatures) == 0 {
		sig.Note = placeholderNoSignatures
	}
	b.add(sig)

	if photos := appendixPhotos(doc); len(photos) > 0 {
		b.add(Block{Kind: KindSectionTitle, Title: "Anhang: Fotodokumentation"})
		b.grid(KindPhotoGrid, photos)
	}
	return b.blocks
}

// Flatten returns every block, wrappers followed by their children, in
// document order.
func Flatten(blocks []Block) []Block {
	var out []Block
	for _, blk := range blocks {
		out = append(out, blk)
		if len(blk.Children) > 0 {
			out = append(out, Flatten(blk.Children)...)
		}
	}
	return out
}

// Atomic returns the atomic blocks in document order.
func Atomic(blocks []Block) []Block {
	var out []Block
	for _, blk := range Flatten(blocks) {
		if blk.Atomic {
			out = append(out, blk)
		}
	}
	return out
}

func metadataBlock(doc *models.Document) Block {
	return Block{
		Kind: KindMetadata,
		Lines: []Line{
			{Label: "Objektanschrift", Values: []string{orDefault(doc.Address, dash)}},
			{Label: "Datum", Values: []string{doc.Date}},
			{Label: "Verkäufer", Values: partyNames(doc, models.RoleSeller)},
			{Label: "Käufer", Values: partyNames(doc, models.RoleBuyer)},
		},
	}
}

func partyNames(doc *models.Document, role models.Role) []string {
	var out []string
	for _, p := range doc.Parties {
		if p.Role != role || p.Name == "" {
			continue
		}
		out = append(out, partyLabel(p))
	}
	if len(out) == 0 {
		return []string{dash}
	}
	return out
}

func partyLabel(p models.Party) string {
	if p.Email != "" {
		return fmt.Sprintf("%s (%s)", p.Name, p.Email)
	}
	return p.Name
}

func otherParties(doc *models.Document) []Line {
	var out []Line
	for _, p := range doc.Parties {
		if p.Role == models.RoleSeller || p.Role == models.RoleBuyer {
			continue
		}
		out = append(out, Line{Label: p.Role.Label(), Values: []string{orDefault(partyLabel(p), dash)}})
	}
	return out
}

func keysBlock(doc *models.Document, title string) Block {
	blk := Block{Kind: KindKeyTable, Title: title}
	var rows [][]string
	for _, k := range doc.Keys {
		if k.Active() {
			rows = append(rows, []string{k.Type, k.Count, orDefault(k.Number, dash)})
		}
	}
	if len(rows) == 0 {
		blk.Note = placeholderNoKeys
		return blk
	}
	blk.Table = &Table{Header: []string{"Schlüssel-Art", "Anzahl", "Nummer (Opt.)"}, Rows: rows}
	return blk
}

func meterCard(m models.MainMeter) Block {
	blk := Block{
		Kind:  KindMeterCard,
		Title: orDefault(m.Type, "Unbenannt"),
		Lines: []Line{
			{Label: "Zähler-Nr:", Values: []string{orDefault(m.Number, dash)}},
			{Label: "Stand:", Values: []string{orDefault(m.Reading, dash)}},
			{Label: "Ort:", Values: []string{orDefault(m.Location, dash)}},
		},
	}
	if m.Image != nil {
		blk.Note = fmt.Sprintf("[Siehe Anhang: %s]", m.Image.Name)
	}
	return blk
}

func heatingTable(doc *models.Document) *Block {
	if !doc.Meters.HasHeating {
		return nil
	}
	var rows [][]string
	for _, h := range doc.Meters.Heating {
		if !h.Recorded() {
			continue
		}
		photo := "-"
		if h.Image != nil {
			photo = "Ja"
		}
		rows = append(rows, []string{h.Room, h.Number, h.Reading, photo})
	}
	if len(rows) == 0 {
		return nil
	}
	return &Block{
		Kind:  KindHeatingTable,
		Title: "Heizkostenverteiler",
		Table: &Table{Header: []string{"Raum", "Geräte-Nr.", "Ablesewert", "Foto"}, Rows: rows},
	}
}

func roomCard(r models.Room) Block {
	blk := Block{
		Kind:  KindInventoryCard,
		Title: orDefault(r.Name, "Unbenannter Raum"),
		Lines: []Line{{Label: "Zustand / Inventar", Values: []string{orDefault(r.Note, dash)}}},
	}
	if r.Image != nil {
		blk.Note = fmt.Sprintf("[Siehe Anhang: %s]", r.Image.Name)
	}
	return blk
}

func defectCard(d models.Defect) Block {
	blk := Block{
		Kind:  KindDefectCard,
		Title: orDefault(d.Location, "Ohne Ortsangabe"),
		Lines: []Line{{Values: []string{orDefault(d.Description, "Keine Beschreibung")}}},
	}
	if d.Image != nil {
		blk.Note = fmt.Sprintf("[Foto im Anhang: %s]", d.Image.Name)
	}
	return blk
}

// appendixPhotos collects photo tiles top to bottom: main meters, heating
// rows, rooms, defects. Heating and defect photos only count while their
// section is switched on.
func appendixPhotos(doc *models.Document) []Block {
	var tiles []Block
	tile := func(img *models.Image, fallback string) {
		if img == nil {
			return
		}
		tiles = append(tiles, Block{Kind: KindPhotoTile, Title: orDefault(img.Name, fallback), Image: img})
	}
	for _, m := range doc.Meters.Main {
		tile(m.Image, m.Type+".jpg")
	}
	if doc.Meters.HasHeating {
		for _, h := range doc.Meters.Heating {
			tile(h.Image, "HKV "+h.Room+".jpg")
		}
	}
	for _, r := range doc.Inventory.Rooms {
		tile(r.Image, "Raum "+r.Name+".jpg")
	}
	if doc.Defects.HasDefects {
		for _, d := range doc.Defects.List {
			tile(d.Image, "Mangel "+d.Location+".jpg")
		}
	}
	return tiles
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
