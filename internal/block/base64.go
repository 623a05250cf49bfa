package block

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
)

// ColumnsPerLine matches the width used by age armor.
const ColumnsPerLine = 64

// WrapBase64 encodes data as standard base64 split into 64 column lines.
// The result has no trailing newline.
func WrapBase64(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)

	var sb strings.Builder
	sb.Grow(len(encoded) + len(encoded)/ColumnsPerLine)
	for len(encoded) > ColumnsPerLine {
		sb.WriteString(encoded[:ColumnsPerLine])
		sb.WriteByte('\n')
		encoded = encoded[ColumnsPerLine:]
	}
	sb.WriteString(encoded)
	return sb.String()
}

// UnwrapBase64 strips all whitespace from s and decodes it.
func UnwrapBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(Normalize(s))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", ErrFormat, err)
	}
	return data, nil
}

// Normalize removes whitespace from a payload so differently wrapped copies
// of the same ciphertext compare equal.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
