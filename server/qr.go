package server

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// qrDataURL renders a QR payload as an inline PNG data URL.
func qrDataURL(payload string) (string, error) {
	if payload == "" {
		return "", fmt.Errorf("[qrDataURL] empty payload")
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("[qrDataURL] encode: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
