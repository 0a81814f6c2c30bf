package qr

import "github.com/skip2/go-qrcode"

// Generator renders ticket QR payloads as PNG images for clients that
// cannot draw the code themselves.
type Generator struct {
	size int
}

func NewGenerator() *Generator {
	return &Generator{size: 256}
}

// RenderPNG encodes the payload into a PNG QR image.
func (g *Generator) RenderPNG(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, g.size)
}
