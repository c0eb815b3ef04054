package codestream

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// EncodeLatin1Comment converts a Go string to the ISO 8859-1 (Latin-1)
// byte sequence the COM marker's Rcom=1 registration value requires
// (Annex A.9.1), instead of a raw UTF-8 byte cast that would corrupt any
// comment containing characters outside ASCII.
func EncodeLatin1Comment(s string) ([]byte, error) {
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewEncoder(), []byte(s))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeLatin1Comment converts COM marker payload bytes registered as
// Rcom=1 (Latin-1) back into a Go string, instead of a raw string(data)
// cast that would leave non-ASCII bytes as invalid UTF-8.
func DecodeLatin1Comment(data []byte) (string, error) {
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
