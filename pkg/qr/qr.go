package qr

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

var ErrEmptyPayload = errors.New("qr payload is empty")

// Generator renders QR payloads as PNG data URLs.
type Generator struct {
	Level qrcode.RecoveryLevel
	Size  int
}

// NewGenerator returns a generator using the highest error correction level
// and a 300px image.
func NewGenerator() *Generator {
	return &Generator{Level: qrcode.Highest, Size: 300}
}

func (g *Generator) Generate(content string) (string, error) {
	if content == "" {
		return "", ErrEmptyPayload
	}
	png, err := qrcode.Encode(content, g.Level, g.Size)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

type passPayload struct {
	PassNumber string `json:"passNumber"`
}

// PassPayload is the machine-readable content embedded in a pass QR code.
func PassPayload(passNumber string) (string, error) {
	if passNumber == "" {
		return "", ErrEmptyPayload
	}
	b, err := json.Marshal(passPayload{PassNumber: passNumber})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParsePassPayload extracts the pass number from scanned QR content. A bare
// pass number is accepted as well as the JSON form.
func ParsePassPayload(data string) (string, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return "", ErrEmptyPayload
	}
	if !strings.HasPrefix(data, "{") {
		return data, nil
	}
	var p passPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return "", fmt.Errorf("malformed qr payload: %w", err)
	}
	if p.PassNumber == "" {
		return "", ErrEmptyPayload
	}
	return p.PassNumber, nil
}
