package restore

import (
	"encoding/base64"
	"net/http"

	"storefront/internal/domain"
)

// Image is one uploaded photo.
type Image struct {
	Filename string
	Data     []byte
	MIME     string
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a RIFF container tagged WEBP. The stdlib
// sniffer has no WebP signature.
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// SniffMIME returns the detected image type and whether it is accepted.
func SniffMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// NewImage validates an upload against the size limit and accepted formats.
func NewImage(filename string, data []byte, maxBytes int64) (Image, error) {
	if len(data) == 0 {
		return Image{}, domain.Invalid("no image provided")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Image{}, domain.Invalid("image exceeds %d bytes", maxBytes)
	}
	mime, ok := SniffMIME(data)
	if !ok {
		return Image{}, domain.Invalid("unsupported image format")
	}
	return Image{Filename: filename, Data: data, MIME: mime}, nil
}

// DataURL encodes the image inline as the inference API accepts it.
func (img Image) DataURL() string {
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
