package service

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDataURIRoundTrip(t *testing.T) {
	payload := encodePNG(t, solidImage(3, 3, red))

	uri, err := EncodeDataURI(MIMEPNG, payload)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("unexpected prefix: %.40s", uri)
	}

	mime, data, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if mime != MIMEPNG {
		t.Errorf("expected mime %q, got %q", MIMEPNG, mime)
	}
	if !bytes.Equal(data, payload) {
		t.Error("payload changed in round trip")
	}
}

func TestEncodeDataURIErrors(t *testing.T) {
	tests := []struct {
		name string
		mime string
		data []byte
	}{
		{"empty payload", MIMEPNG, nil},
		{"empty mime", "", []byte{1}},
		{"mime with separator", "image/png;charset=x", []byte{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeDataURI(tt.mime, tt.data); !errors.Is(err, ErrEncoding) {
				t.Fatalf("expected ErrEncoding, got %v", err)
			}
		})
	}
}

func TestDecodeDataURIErrors(t *testing.T) {
	tests := []string{
		"",
		"image/png;base64,AAAA",
		"data:image/png;base64",
		"data:image/png,AAAA",
		"data:image/png;base64,***",
	}

	for _, uri := range tests {
		if _, _, err := DecodeDataURI(uri); !errors.Is(err, ErrDecode) {
			t.Errorf("DecodeDataURI(%q): expected ErrDecode, got %v", uri, err)
		}
	}
}
