package xfer

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// encodeUTF16 returns s as little endian UTF-16 code units.
func encodeUTF16(s string) ([]byte, error) {
	b, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode utf-16")
	}
	return b, nil
}

func decodeUTF16(b []byte) (string, error) {
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrap(err, "failed to decode utf-16")
	}
	return string(out), nil
}
