package models

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Register a broad set of decoders so uploaded photos in any common format
	// are accepted.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrInvalidImage = errors.New("invalid image attachment")

// Image is a raster attachment with the name shown in the photo appendix.
// A nil *Image means "no image"; a non-nil one always has both halves.
type Image struct {
	Data []byte `json:"data" bson:"data"`
	Name string `json:"name" bson:"name"`
}

// NewImage validates that data decodes as a raster image and pairs it with name.
func NewImage(data []byte, name string) (*Image, error) {
	if len(data) == 0 || name == "" {
		return nil, fmt.Errorf("%w: data and name are both required", ErrInvalidImage)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return &Image{Data: data, Name: name}, nil
}

// Format returns the registered decoder name of the image ("png", "jpeg", ...).
func (i *Image) Format() string {
	if i == nil {
		return ""
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(i.Data))
	if err != nil {
		return ""
	}
	return format
}

// Valid reports whether the attachment is absent or complete.
func (i *Image) Valid() bool {
	return i == nil || (len(i.Data) > 0 && i.Name != "")
}

// ValidateImages checks every photo and signature of d. Absent photos are
// fine; a present one must pair decodable data with a name.
func (d *Document) ValidateImages() error {
	check := func(where string, img *Image) error {
		if img == nil {
			return nil
		}
		if _, err := NewImage(img.Data, img.Name); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		return nil
	}
	for i, m := range d.Meters.Main {
		if err := check(fmt.Sprintf("main meter %d", i+1), m.Image); err != nil {
			return err
		}
	}
	for i, h := range d.Meters.Heating {
		if err := check(fmt.Sprintf("heating meter %d", i+1), h.Image); err != nil {
			return err
		}
	}
	for i, r := range d.Inventory.Rooms {
		if err := check(fmt.Sprintf("room %d", i+1), r.Image); err != nil {
			return err
		}
	}
	for i, def := range d.Defects.List {
		if err := check(fmt.Sprintf("defect %d", i+1), def.Image); err != nil {
			return err
		}
	}
	for i, sig := range d.Signatures {
		if _, err := NewImage(sig.Data, "signature"); err != nil {
			return fmt.Errorf("signature %d: %w", i+1, err)
		}
	}
	return nil
}
