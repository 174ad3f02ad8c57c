package models

import (
	"strconv"
	"strings"
	"time"
)

// Role is the part a party plays in the handover. The set is open; unknown
// values are kept and printed as-is.
type Role string

const (
	RoleSeller          Role = "seller"
	RoleBuyer           Role = "buyer"
	RoleOwner           Role = "owner"
	RoleTenant          Role = "tenant"
	RoleLandlord        Role = "landlord"
	RolePropertyManager Role = "property-manager"
	RoleBroker          Role = "broker"
	RoleWitness         Role = "witness"
)

var roleLabels = map[Role]string{
	RoleSeller:          "Verkäufer",
	RoleBuyer:           "Käufer",
	RoleOwner:           "Eigentümer",
	RoleTenant:          "Mieter",
	RoleLandlord:        "Vermieter",
	RolePropertyManager: "Hausverwaltung",
	RoleBroker:          "Makler",
	RoleWitness:         "Zeuge",
}

// Label returns the German display name of the role.
func (r Role) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}

// KnownRoles lists the roles offered for parties and signers, in display order.
func KnownRoles() []Role {
	return []Role{RoleSeller, RoleBuyer, RoleOwner, RoleTenant, RoleLandlord, RolePropertyManager, RoleBroker, RoleWitness}
}

type Party struct {
	ID    string `json:"id" bson:"id"`
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
	Role  Role   `json:"role" bson:"role"`
}

type Key struct {
	ID     string `json:"id" bson:"id"`
	Type   string `json:"type" bson:"type"`
	Count  string `json:"count" bson:"count"`
	Number string `json:"number" bson:"number"`
}

// Active reports whether the key row is handed over, i.e. its count is a
// number greater than zero.
func (k Key) Active() bool {
	n, err := strconv.Atoi(strings.TrimSpace(k.Count))
	return err == nil && n > 0
}

type MainMeter struct {
	ID       string `json:"id" bson:"id"`
	Type     string `json:"type" bson:"type"`
	Number   string `json:"number" bson:"number"`
	Reading  string `json:"reading" bson:"reading"`
	Location string `json:"location" bson:"location"`
	Image    *Image `json:"image,omitempty" bson:"image,omitempty"`
}

type HeatingMeter struct {
	ID      string `json:"id" bson:"id"`
	Room    string `json:"room" bson:"room"`
	Number  string `json:"number" bson:"number"`
	Reading string `json:"reading" bson:"reading"`
	Image   *Image `json:"image,omitempty" bson:"image,omitempty"`
}

// Recorded reports whether the heating row carries a device number or a reading.
func (h HeatingMeter) Recorded() bool {
	return h.Number != "" || h.Reading != ""
}

type Meters struct {
	Main       []MainMeter    `json:"main" bson:"main"`
	HasHeating bool           `json:"hasHeating" bson:"has_heating"`
	Heating    []HeatingMeter `json:"heating" bson:"heating"`
}

type Room struct {
	ID    string `json:"id" bson:"id"`
	Name  string `json:"name" bson:"name"`
	Note  string `json:"note" bson:"note"`
	Image *Image `json:"image,omitempty" bson:"image,omitempty"`
}

type Inventory struct {
	Rooms []Room `json:"rooms" bson:"rooms"`
}

type Defect struct {
	ID          string `json:"id" bson:"id"`
	Location    string `json:"location" bson:"location"`
	Description string `json:"description" bson:"description"`
	Image       *Image `json:"image,omitempty" bson:"image,omitempty"`
}

type Defects struct {
	HasDefects bool     `json:"hasDefects" bson:"has_defects"`
	List       []Defect `json:"list" bson:"list"`
}

// Signature is written once by the signing action and never edited.
type Signature struct {
	Role      Role      `json:"role" bson:"role"`
	Name      string    `json:"name" bson:"name"`
	Data      []byte    `json:"data" bson:"data"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Document is one handover protocol. ID is assigned at creation and joins the
// live document, its draft and its history entry.
type Document struct {
	ID         string      `json:"id" bson:"_id"`
	Date       string      `json:"date" bson:"date"`
	Address    string      `json:"address" bson:"address"`
	Parties    []Party     `json:"parties" bson:"parties"`
	Keys       []Key       `json:"keys" bson:"keys"`
	Meters     Meters      `json:"meters" bson:"meters"`
	Inventory  Inventory   `json:"inventory" bson:"inventory"`
	Defects    Defects     `json:"defects" bson:"defects"`
	Docs       string      `json:"docs" bson:"docs"`
	Remarks    string      `json:"remarks" bson:"remarks"`
	Signatures []Signature `json:"signatures" bson:"signatures"`
}

// Recipients returns the non-empty party emails in party order.
func (d *Document) Recipients() []string {
	out := []string{}
	for _, p := range d.Parties {
		if p.Email != "" {
			out = append(out, p.Email)
		}
	}
	return out
}

// PartySummary is the compact "Name, Name" line shown in the history list.
func (d *Document) PartySummary() string {
	var names []string
	for _, p := range d.Parties {
		if n := strings.TrimSpace(p.Name); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ", ")
}
