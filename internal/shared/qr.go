package shared

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRString renders the given content as a scannable QR code using half-height
// terminal block characters.
func QRString(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}
	return qr.ToSmallString(false), nil
}
