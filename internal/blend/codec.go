package blend

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
)

// ErrDecode marks an image blob that could not be decoded. The operation
// that hit it fails; nothing else is touched.
var ErrDecode = errors.New("image decode failed")

// Decode turns a base64-encoded blob into pixel data. The MIME type is a
// hint; the actual format is sniffed from magic bytes so a mislabelled
// blob still decodes when it is a format we support.
func Decode(blob, mimeType string) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrDecode, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty blob", ErrDecode)
	}

	img, err := decodeBytes(data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// EncodePNG renders img as a PNG and returns it base64-encoded.
func EncodePNG(img image.Image) (string, error) {
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out.Bytes()), nil
}

func decodeBytes(data []byte, mimeType string) (image.Image, error) {
	switch {
	case isWEBP(data):
		return webp.Decode(bytes.NewReader(data), &decoder.Options{})
	case isPNG(data):
		return png.Decode(bytes.NewReader(data))
	case isJPEG(data):
		return jpeg.Decode(bytes.NewReader(data))
	}

	// Magic bytes unknown; last chance via the declared MIME type.
	switch strings.ToLower(mimeType) {
	case "image/png":
		return png.Decode(bytes.NewReader(data))
	case "image/jpeg", "image/jpg":
		return jpeg.Decode(bytes.NewReader(data))
	case "image/webp":
		return webp.Decode(bytes.NewReader(data), &decoder.Options{})
	}
	return nil, fmt.Errorf("unsupported image format (mime %q)", mimeType)
}

func isWEBP(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

func isPNG(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	return bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
}

func isJPEG(data []byte) bool {
	return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
}
