package ceremony

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for length := 0; length <= 64; length++ {
		for _, fill := range []func(int) byte{
			func(i int) byte { return byte(i) },
			func(i int) byte { return byte(255 - i) },
			func(i int) byte { return byte(i*37 + 11) },
			func(int) byte { return 0xff },
			func(int) byte { return 0x00 },
		} {
			value := make([]byte, length)
			for i := range value {
				value[i] = fill(i)
			}
			encoded := EncodeBinary(value)
			if strings.ContainsAny(encoded, "+/=") {
				t.Fatalf("encoding of %x contains reserved characters: %q", value, encoded)
			}
			decoded, err := DecodeBinary(encoded)
			if err != nil {
				t.Fatalf("decode of %q failed: %v", encoded, err)
			}
			if !bytes.Equal(decoded, value) {
				t.Fatalf("round trip mismatch: got %x, want %x", decoded, value)
			}
		}
	}
}

func TestEncodeBinaryKnownVectors(t *testing.T) {
	cases := []struct {
		input []byte
		want  string
	}{
		{input: nil, want: ""},
		{input: []byte("f"), want: "Zg"},
		{input: []byte("fo"), want: "Zm8"},
		{input: []byte("foo"), want: "Zm9v"},
		{input: []byte{0xfb, 0xff}, want: "-_8"},
		{input: []byte{0xfb, 0xef, 0xbe}, want: "----"},
		{input: []byte{0xff, 0xff, 0xff}, want: "____"},
	}
	for _, testCase := range cases {
		if got := EncodeBinary(testCase.input); got != testCase.want {
			t.Fatalf("EncodeBinary(%x) = %q, want %q", testCase.input, got, testCase.want)
		}
	}
}

// A browser-side atob decoder accepts padded ("Zg==") and non-canonical
// ("Zh") input. DecodeBinary rejects both so every byte sequence has exactly
// one accepted text form; keep these cases when touching the decoder.
func TestDecodeBinaryRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"standard alphabet plus":  "ab+c",
		"standard alphabet slash": "ab/c",
		"padding":                 "Zg==",
		"impossible length":       "Zm9vY",
		"non alphabet":            "Zm9v!",
		"line break":              "Zm9v\nZg",
		"non canonical bits":      "Zh",
	}
	for name, input := range cases {
		_, err := DecodeBinary(input)
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("%s: expected DecodeError for %q, got %v", name, input, err)
		}
	}
}

func TestDecodeErrorReportsOffset(t *testing.T) {
	_, err := DecodeBinary("Zm9v!")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.Offset != 4 {
		t.Fatalf("unexpected offset: %d", decodeErr.Offset)
	}
	if !strings.Contains(decodeErr.Error(), "offset 4") {
		t.Fatalf("unexpected message: %q", decodeErr.Error())
	}
}
