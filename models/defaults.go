package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh identifier for a document or a collection entry.
func NewID() string {
	return uuid.NewString()
}

// NewDocument returns a protocol pre-filled with the placeholder rows the
// wizard starts from.
func NewDocument(now time.Time) *Document {
	return &Document{
		ID:   NewID(),
		Date: now.Format("2006-01-02"),
		Parties: []Party{
			{ID: NewID(), Role: RoleSeller},
			{ID: NewID(), Role: RoleBuyer},
		},
		Keys: []Key{
			{ID: NewID(), Type: "Haus-/Wohnungsschlüssel"},
			{ID: NewID(), Type: "Briefkastenschlüssel"},
		},
		Meters: Meters{
			Main: []MainMeter{
				{ID: NewID(), Type: "Strom"},
				{ID: NewID(), Type: "Wasser (Kalt)"},
			},
			HasHeating: true,
			Heating: []HeatingMeter{
				{ID: NewID(), Room: "Wohnzimmer"},
				{ID: NewID(), Room: "Schlafzimmer"},
			},
		},
		Inventory: Inventory{Rooms: []Room{}},
		Defects: Defects{
			List: []Defect{{ID: NewID()}},
		},
		Signatures: []Signature{},
	}
}

// Clone returns a deep copy; edits on the copy never reach d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Parties = slices.Clone(d.Parties)
	c.Keys = slices.Clone(d.Keys)
	c.Meters.Main = slices.Clone(d.Meters.Main)
	for i := range c.Meters.Main {
		c.Meters.Main[i].Image = d.Meters.Main[i].Image.clone()
	}
	c.Meters.Heating = slices.Clone(d.Meters.Heating)
	for i := range c.Meters.Heating {
		c.Meters.Heating[i].Image = d.Meters.Heating[i].Image.clone()
	}
	c.Inventory.Rooms = slices.Clone(d.Inventory.Rooms)
	for i := range c.Inventory.Rooms {
		c.Inventory.Rooms[i].Image = d.Inventory.Rooms[i].Image.clone()
	}
	c.Defects.List = slices.Clone(d.Defects.List)
	for i := range c.Defects.List {
		c.Defects.List[i].Image = d.Defects.List[i].Image.clone()
	}
	c.Signatures = slices.Clone(d.Signatures)
	for i := range c.Signatures {
		c.Signatures[i].Data = slices.Clone(d.Signatures[i].Data)
	}
	return &c
}

func (i *Image) clone() *Image {
	if i == nil {
		return nil
	}
	return &Image{Data: slices.Clone(i.Data), Name: i.Name}
}
