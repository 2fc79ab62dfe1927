package service

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// MIMEPNG is the format tag of every composed photo and sheet.
const MIMEPNG = "image/png"

// EncodeDataURI wraps data in a data URI with the given MIME type.
func EncodeDataURI(mime string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrEncoding)
	}
	if mime == "" || strings.ContainsAny(mime, ",;") {
		return "", fmt.Errorf("%w: bad mime type %q", ErrEncoding, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DecodeDataURI reverses EncodeDataURI. Only base64 URIs are accepted.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrDecode)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload separator", ErrDecode)
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: not base64 encoded", ErrDecode)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return mime, data, nil
}
