// Package barcode renders pickup codes as scannable QR images. Scanning
// clients decode the image back to the exact code string.
package barcode

import (
	"errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// Size bounds, in pixels.
const (
	MinSize     = 64
	MaxSize     = 2048
	DefaultSize = 256
)

// ErrEmptyCode is returned when there is nothing to encode.
var ErrEmptyCode = errors.New("empty code")

// PNG encodes code as a size x size PNG QR image with medium error
// correction. Out-of-range sizes fall back to DefaultSize.
func PNG(code string, size int) ([]byte, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyCode
	}
	if size < MinSize || size > MaxSize {
		size = DefaultSize
	}
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
