package wizard

import (
	"errors"
	"fmt"

	"uebergabe/models"
)

var ErrUnknownEntry = errors.New("no entry with this id")

// Edit turns one document snapshot into the next. Edits never modify their
// input; they work on a clone.
type Edit func(doc *models.Document) (*models.Document, error)

func edit(apply func(d *models.Document) error) Edit {
	return func(doc *models.Document) (*models.Document, error) {
		next := doc.Clone()
		if err := apply(next); err != nil {
			return nil, err
		}
		return next, nil
	}
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func indexOf[T any](list []T, id string, idOf func(*T) string) int {
	for i := range list {
		if idOf(&list[i]) == id {
			return i
		}
	}
	return -1
}

func update[T any](list []T, id string, idOf func(*T) string, apply func(*T)) error {
	i := indexOf(list, id, idOf)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	apply(&list[i])
	return nil
}

func remove[T any](list []T, id string, idOf func(*T) string) ([]T, error) {
	i := indexOf(list, id, idOf)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	return append(list[:i], list[i+1:]...), nil
}

func partyID(p *models.Party) string { return p.ID }
func keyID(k *models.Key) string { return k.ID }
func mainID(m *models.MainMeter) string { return m.ID }
func heatingID(h *models.HeatingMeter) string { return h.ID }
func roomID(r *models.Room) string { return r.ID }
func defectID(d *models.Defect) string { return d.ID }

// Patches carry only the fields to change; nil leaves a field as it is.

type PartyPatch struct {
	Name  *string      `json:"name,omitempty"`
	Email *string      `json:"email,omitempty"`
	Role  *models.Role `json:"role,omitempty"`
}

type KeyPatch struct {
	Type   *string `json:"type,omitempty"`
	Count  *string `json:"count,omitempty"`
	Number *string `json:"number,omitempty"`
}

type MainMeterPatch struct {
	Type     *string `json:"type,omitempty"`
	Number   *string `json:"number,omitempty"`
	Reading  *string `json:"reading,omitempty"`
	Location *string `json:"location,omitempty"`
}

type HeatingMeterPatch struct {
	Room    *string `json:"room,omitempty"`
	Number  *string `json:"number,omitempty"`
	Reading *string `json:"reading,omitempty"`
}

type RoomPatch struct {
	Name *string `json:"name,omitempty"`
	Note *string `json:"note,omitempty"`
}

type DefectPatch struct {
	Location    *string `json:"location,omitempty"`
	Description *string `json:"description,omitempty"`
}

func SetDate(date string) Edit {
	return edit(func(d *models.Document) error { d.Date = date; return nil })
}

func SetAddress(address string) Edit {
	return edit(func(d *models.Document) error { d.Address = address; return nil })
}

func SetDocs(docs string) Edit {
	return edit(func(d *models.Document) error { d.Docs = docs; return nil })
}

func SetRemarks(remarks string) Edit {
	return edit(func(d *models.Document) error { d.Remarks = remarks; return nil })
}

// Parties

func AddParty(role models.Role) Edit {
	return edit(func(d *models.Document) error {
		d.Parties = append(d.Parties, models.Party{ID: models.NewID(), Role: role})
		return nil
	})
}

func UpdateParty(id string, p PartyPatch) Edit {
	return edit(func(d *models.Document) error {
		return update(d.Parties, id, partyID, func(x *models.Party) {
			set(&x.Name, p.Name)
			set(&x.Email, p.Email)
			set(&x.Role, p.Role)
		})
	})
}

func RemoveParty(id string) Edit {
	return edit(func(d *models.Document) (err error) {
		d.Parties, err = remove(d.Parties, id, partyID)
		return err
	})
}

// Keys

func AddKey() Edit {
	return edit(func(d *models.Document) error {
		d.Keys = append(d.Keys, models.Key{ID: models.NewID()})
		return nil
	})
}

func UpdateKey(id string, p KeyPatch) Edit {
	return edit(func(d *models.Document) error {
		return update(d.Keys, id, keyID, func(x *models.Key) {
			set(&x.Type, p.Type)
			set(&x.Count, p.Count)
			set(&x.Number, p.Number)
		})
	})
}

func RemoveKey(id string) Edit {
	return edit(func(d *models.Document) (err error) {
		d.Keys, err = remove(d.Keys, id, keyID)
		return err
	})
}

// Main meters

func AddMainMeter() Edit {
	return edit(func(d *models.Document) error {
		d.Meters.Main = append(d.Meters.Main, models.MainMeter{ID: models.NewID()})
		return nil
	})
}

func UpdateMainMeter(id string, p MainMeterPatch) Edit {
	return edit(func(d *models.Document) error {
		return update(d.Meters.Main, id, mainID, func(x *models.MainMeter) {
			set(&x.Type, p.Type)
			set(&x.Number, p.Number)
			set(&x.Reading, p.Reading)
			set(&x.Location, p.Location)
		})
	})
}

func RemoveMainMeter(id string) Edit {
	return edit(func(d *models.Document) (err error) {
		d.Meters.Main, err = remove(d.Meters.Main, id, mainID)
		return err
	})
}

// Heating cost allocators

func SetHasHeating(on bool) Edit {
	return edit(func(d *models.Document) error { d.Meters.HasHeating = on; return nil })
}

func AddHeatingMeter() Edit {
	return edit(func(d *models.Document) error {
		d.Meters.Heating = append(d.Meters.Heating, models.HeatingMeter{ID: models.NewID()})
		return nil
	})
}

func UpdateHeatingMeter(id string, p HeatingMeterPatch) Edit {
	return edit(func(d *models.Document) error {
		return update(d.Meters.Heating, id, heatingID, func(x *models.HeatingMeter) {
			set(&x.Room, p.Room)
			set(&x.Number, p.Number)
			set(&x.Reading, p.Reading)
		})
	})
}

func RemoveHeatingMeter(id string) Edit {
	return edit(func(d *models.Document) (err error) {
		d.Meters.Heating, err = remove(d.Meters.Heating, id, heatingID)
		return err
	})
}

// Rooms

func AddRoom() Edit {
	return edit(func(d *models.Document) error {
		d.Inventory.Rooms = append(d.Inventory.Rooms, models.Room{ID: models.NewID()})
		return nil
	})
}

func UpdateRoom(id string, p RoomPatch) Edit {
	return edit(func(d *models.Document) error {
		return update(d.Inventory.Rooms, id, roomID, func(x *models.Room) {
			set(&x.Name, p.Name)
			set(&x.Note, p.Note)
		})
	})
}

func RemoveRoom(id string) Edit {
	return edit(func(d *models.Document) (err error) {
		d.Inventory.Rooms, err = remove(d.Inventory.Rooms, id, roomID)
		return err
	})
}

// Defects

func SetHasDefects(on bool) Edit {
	return edit(func(d *models.Document) error { d.Defects.HasDefects = on; return nil })
}

func AddDefect() Edit {
	return edit(func(d *models.Document) error {
		d.Defects.List = append(d.Defects.List, models.Defect{ID: models.NewID()})
		return nil
	})
}

func UpdateDefect(id string, p DefectPatch) Edit {
	return edit(func(d *models.Document) error {
		return update(d.Defects.List, id, defectID, func(x *models.Defect) {
			set(&x.Location, p.Location)
			set(&x.Description, p.Description)
		})
	})
}

func RemoveDefect(id string) Edit {
	return edit(func(d *models.Document) (err error) {
		d.Defects.List, err = remove(d.Defects.List, id, defectID)
		return err
	})
}

// Images

// Section names an image-bearing collection.
type Section string

const (
	SectionMainMeter    Section = "main_meter"
	SectionHeatingMeter Section = "heating_meter"
	SectionRoom         Section = "room"
	SectionDefect       Section = "defect"
)

// SetImage attaches img to the entry id of section. A nil img removes the
// attachment.
func SetImage(section Section, id string, img *models.Image) Edit {
	return edit(func(d *models.Document) error {
		if !img.Valid() {
			return models.ErrInvalidImage
		}
		switch section {
		case SectionMainMeter:
			return update(d.Meters.Main, id, mainID, func(x *models.MainMeter) { x.Image = img })
		case SectionHeatingMeter:
			return update(d.Meters.Heating, id, heatingID, func(x *models.HeatingMeter) { x.Image = img })
		case SectionRoom:
			return update(d.Inventory.Rooms, id, roomID, func(x *models.Room) { x.Image = img })
		case SectionDefect:
			return update(d.Defects.List, id, defectID, func(x *models.Defect) { x.Image = img })
		}
		return fmt.Errorf("unknown image section %q", section)
	})
}
