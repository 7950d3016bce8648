package services

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
)

// QRGenerator renders ticket codes as square PNG images
type QRGenerator struct {
	size   int
	border int
}

// NewQRGenerator creates a generator for size x size images with a white
// quiet zone of border pixels
func NewQRGenerator(size, border int) *QRGenerator {
	if size <= 0 {
		size = 320
	}
	if border < 0 || border*2 >= size {
		border = 0
	}
	return &QRGenerator{size: size, border: border}
}

// PNG encodes code as a QR image
func (g *QRGenerator) PNG(code string) ([]byte, error) {
	if code == "" {
		return nil, fmt.Errorf("empty ticket code")
	}

	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	q.DisableBorder = true

	inner := g.size - 2*g.border
	// go-qrcode rounds to whole modules, so force the exact inner size
	symbol := imaging.Resize(q.Image(inner), inner, inner, imaging.NearestNeighbor)

	canvas := imaging.New(g.size, g.size, color.White)
	canvas = imaging.PasteCenter(canvas, symbol)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Size is the edge length of generated images in pixels
func (g *QRGenerator) Size() int {
	return g.size
}
