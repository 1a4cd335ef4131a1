// Package document renders the artifacts handed to customers and
// retailers: the pass QR code, the pass card image and the monthly
// retailer invoice and report.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/disintegration/imaging"

	"github.com/iliyamo/park-passes/internal/model"
)

// QRPayload is what a scanner at the park gate reads from a pass.
type QRPayload struct {
	PassNumber           string `json:"pass_number"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	PassType             string `json:"pass_type"`
	VehicleRegistration1 string `json:"vehicle_registration_1,omitempty"`
	VehicleRegistration2 string `json:"vehicle_registration_2,omitempty"`
	DateStart            string `json:"date_start"`
	DateExpiry           string `json:"date_expiry"`
}

// PayloadFor builds the QR payload of a loaded pass.
func PayloadFor(p *model.Pass) QRPayload {
	q := QRPayload{
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		DateStart:  p.DateStart.Format("2006-01-02"),
		DateExpiry: p.DateExpiry.Format("2006-01-02"),
	}
	if p.PassNumber != nil {
		q.PassNumber = *p.PassNumber
	}
	if p.PassType != nil {
		q.PassType = p.PassType.DisplayName
	}
	if p.VehicleRegistration1 != nil {
		q.VehicleRegistration1 = *p.VehicleRegistration1
	}
	if p.VehicleRegistration2 != nil {
		q.VehicleRegistration2 = *p.VehicleRegistration2
	}
	return q
}

// Encrypter transforms the serialized payload before it is encoded.  The
// gate scanners currently read plain JSON.
type Encrypter interface {
	Encrypt(plain []byte) ([]byte, error)
}

// PlainText is the identity Encrypter.
type PlainText struct{}

func (PlainText) Encrypt(plain []byte) ([]byte, error) { return plain, nil }

// QRImage encodes the pass payload as a square QR code of side pixels.
func QRImage(p *model.Pass, enc Encrypter, side int) (image.Image, error) {
	if p.PassNumber == nil {
		return nil, fmt.Errorf("document: pass %d has no pass number", p.ID)
	}
	raw, err := json.Marshal(PayloadFor(p))
	if err != nil {
		return nil, err
	}
	data, err := enc.Encrypt(raw)
	if err != nil {
		return nil, fmt.Errorf("document: encrypt qr payload: %w", err)
	}
	code, err := qr.Encode(string(data), qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("document: encode qr: %w", err)
	}
	return barcode.Scale(code, side, side)
}

// QRPNG is QRImage encoded as PNG.
func QRPNG(p *model.Pass, enc Encrypter, side int) ([]byte, error) {
	img, err := QRImage(p, enc, side)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
