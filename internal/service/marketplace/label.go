package marketplace

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// DecodeLabel turns the base64 label contents of a shipment into ZPL text.
// Gzip-compressed payloads are inflated, anything else is returned as is.
func DecodeLabel(contents string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(contents)
	if err != nil {
		return "", fmt.Errorf("label base64: %w", err)
	}
	if !bytes.HasPrefix(raw, gzipMagic) {
		return string(raw), nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("label gzip: %w", err)
	}
	defer zr.Close()
	text, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("label gzip: %w", err)
	}
	return string(text), nil
}

// EncodeLabel is the inverse of DecodeLabel (gzip, then base64).
func EncodeLabel(zpl string) (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(zpl)); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
