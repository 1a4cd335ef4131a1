package document

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/iliyamo/park-passes/internal/model"
)

// ErrNoPassTemplate means no pass template has been uploaded, so no pass
// document can be produced.
var ErrNoPassTemplate = &model.IntegrityError{Msg: "no pass template exists"}

// qrShare is the QR side as a fraction of the template's shorter side.
const qrShare = 0.3

// PassCard composites the pass QR code onto the bottom right corner of the
// template image and returns the result as PNG.
func PassCard(template []byte, p *model.Pass, enc Encrypter) ([]byte, error) {
	bg, err := imaging.Decode(bytes.NewReader(template), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("document: decode pass template: %w", err)
	}
	b := bg.Bounds()
	short := min(b.Dx(), b.Dy())
	side := int(float64(short) * qrShare)
	if side < 21 {
		return nil, fmt.Errorf("document: pass template too small (%dx%d)", b.Dx(), b.Dy())
	}
	code, err := QRImage(p, enc, side)
	if err != nil {
		return nil, err
	}
	margin := short / 20
	at := image.Pt(b.Max.X-side-margin, b.Max.Y-side-margin)
	out := imaging.Overlay(bg, code, at, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PassCardKey is the object key of a pass document.
func PassCardKey(p *model.Pass) string {
	number := fmt.Sprintf("%d", p.ID)
	if p.PassNumber != nil {
		number = *p.PassNumber
	}
	return fmt.Sprintf("passes/%d/%s.png", p.ID, number)
}

// ErrTemplateNotImage rejects an uploaded pass template that cannot be
// decoded.
var ErrTemplateNotImage = &model.ValidationError{Msg: "the pass template must be a PNG, JPEG or GIF image"}

// CheckTemplate verifies that an uploaded template is a usable image and
// returns its format name.
func CheckTemplate(b []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return "", ErrTemplateNotImage
	}
	if _, err := imaging.Decode(bytes.NewReader(b)); err != nil {
		return "", ErrTemplateNotImage
	}
	return format, nil
}
