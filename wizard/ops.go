package wizard

import (
	"errors"
	"fmt"

	"uebergabe/models"
)

var ErrUnknownOp = errors.New("unknown edit operation")

// EditRequest is the wire form of an Edit. Op selects the edit; the other
// fields are read as that edit needs them.
type EditRequest struct {
	Op      string  `json:"op"`
	ID      string  `json:"id,omitempty"`
	Value   string  `json:"value,omitempty"`
	Enabled bool    `json:"enabled,omitempty"`
	Role    string  `json:"role,omitempty"`
	Section Section `json:"section,omitempty"`

	Party   *PartyPatch        `json:"party,omitempty"`
	Key     *KeyPatch          `json:"key,omitempty"`
	Meter   *MainMeterPatch    `json:"meter,omitempty"`
	Heating *HeatingMeterPatch `json:"heating,omitempty"`
	Room    *RoomPatch         `json:"room,omitempty"`
	Defect  *DefectPatch       `json:"defect,omitempty"`

	Image *ImagePayload `json:"image,omitempty"`
}

// ImagePayload is an uploaded photo; Data is base64 in JSON.
type ImagePayload struct {
	Data []byte `json:"data"`
	Name string `json:"name"`
}

// ToEdit resolves the request into a typed Edit.
func (r EditRequest) ToEdit() (Edit, error) {
	switch r.Op {
	case "set_date":
		return SetDate(r.Value), nil
	case "set_address":
		return SetAddress(r.Value), nil
	case "set_docs":
		return SetDocs(r.Value), nil
	case "set_remarks":
		return SetRemarks(r.Value), nil
	case "improve_remarks":
		return improveRemarks, nil

	case "add_party":
		role := models.Role(r.Role)
		if role == "" {
			role = models.RoleOwner
		}
		return AddParty(role), nil
	case "update_party":
		return UpdateParty(r.ID, deref(r.Party)), nil
	case "remove_party":
		return RemoveParty(r.ID), nil

	case "add_key":
		return AddKey(), nil
	case "update_key":
		return UpdateKey(r.ID, deref(r.Key)), nil
	case "remove_key":
		return RemoveKey(r.ID), nil

	case "add_meter":
		return AddMainMeter(), nil
	case "update_meter":
		return UpdateMainMeter(r.ID, deref(r.Meter)), nil
	case "remove_meter":
		return RemoveMainMeter(r.ID), nil

	case "set_has_heating":
		return SetHasHeating(r.Enabled), nil
	case "add_heating":
		return AddHeatingMeter(), nil
	case "update_heating":
		return UpdateHeatingMeter(r.ID, deref(r.Heating)), nil
	case "remove_heating":
		return RemoveHeatingMeter(r.ID), nil

	case "add_room":
		return AddRoom(), nil
	case "update_room":
		return UpdateRoom(r.ID, deref(r.Room)), nil
	case "remove_room":
		return RemoveRoom(r.ID), nil

	case "set_has_defects":
		return SetHasDefects(r.Enabled), nil
	case "add_defect":
		return AddDefect(), nil
	case "update_defect":
		return UpdateDefect(r.ID, deref(r.Defect)), nil
	case "remove_defect":
		return RemoveDefect(r.ID), nil

	case "set_image":
		if r.Image == nil {
			return nil, fmt.Errorf("%w: image payload missing", models.ErrInvalidImage)
		}
		img, err := models.NewImage(r.Image.Data, r.Image.Name)
		if err != nil {
			return nil, err
		}
		return SetImage(r.Section, r.ID, img), nil
	case "remove_image":
		return SetImage(r.Section, r.ID, nil), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOp, r.Op)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
