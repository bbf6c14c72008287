// Package imagedata turns data-URL strings sent by browsers into raster images.
package imagedata

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrMalformedDataURL = errors.New("malformed data URL")
	ErrInvalidBase64    = errors.New("invalid base64 payload")
	ErrUndecodableImage = errors.New("undecodable image")
)

// SplitDataURL splits "<header>,<payload>" on the first comma.
func SplitDataURL(dataURL string) (header, payload string, err error) {
	header, payload, found := strings.Cut(dataURL, ",")
	if !found {
		return "", "", ErrMalformedDataURL
	}
	return header, payload, nil
}

// DecodeBase64 decodes a standard base64 payload. Whitespace and line breaks
// inside the payload are ignored.
func DecodeBase64(payload string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, payload)

	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return data, nil
}

// DecodeImage decodes raw image bytes (JPEG, PNG, GIF, BMP, TIFF, WebP).
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	return img, format, nil
}

// DecodeDataURL discards the data-URL header and decodes the base64 payload
// as an image.
func DecodeDataURL(dataURL string) (image.Image, string, error) {
	_, payload, err := SplitDataURL(dataURL)
	if err != nil {
		return nil, "", err
	}

	data, err := DecodeBase64(payload)
	if err != nil {
		return nil, "", err
	}

	return DecodeImage(data)
}

// EncodeDataURL builds a data URL from raw bytes and a MIME type.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
