// Package block reads and writes the fenced age blocks embedded in notes.
//
//	```age
//	hint: <optional free text>
//	method: <optional tag>
//	-----BEGIN AGE ENCRYPTED FILE-----
//	<base64 payload, 64 columns>
//	-----END AGE ENCRYPTED FILE-----
//	```
//
// Blocks written by early versions carry no armor markers and no method line;
// Parse still accepts them.
package block

import (
	"errors"
	"fmt"
	"strings"

	"filippo.io/age/armor"
)

// Language is the fence info string that marks an encrypted block.
const Language = "age"

const (
	fence        = "```"
	hintPrefix   = "hint:"
	methodPrefix = "method:"
)

// ErrFormat is returned for any block that cannot be parsed.
var ErrFormat = errors.New("invalid encrypted block")

// Block is a parsed encrypted block. Empty Hint or Method means absent.
type Block struct {
	Content string
	Hint    string
	Method  string
}

// hintNewlines flattens a multi-line hint onto the single hint line.
var hintNewlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Format renders content as a fenced block. content must already be wrapped.
// Empty hint, method or content lines are omitted.
func Format(content, hint, method string) string {
	lines := []string{fence + Language}
	hint = hintNewlines.Replace(hint)
	if hint != "" {
		lines = append(lines, "hint: "+hint)
	}
	if method != "" {
		lines = append(lines, "method: "+method)
	}
	lines = append(lines, armor.Header)
	if content != "" {
		lines = append(lines, content)
	}
	lines = append(lines, armor.Footer, fence)
	return strings.Join(lines, "\n")
}

// String renders b with Format.
func (b *Block) String() string {
	return Format(b.Content, b.Hint, b.Method)
}

type lineKind int

const (
	kindPayload lineKind = iota
	kindFence
	kindHint
	kindMethod
	kindBegin
	kindEnd
)

type line struct {
	kind  lineKind
	raw   string
	value string
}

func classify(s string) line {
	switch {
	case strings.HasPrefix(s, fence):
		return line{kind: kindFence, raw: s}
	case s == armor.Header:
		return line{kind: kindBegin, raw: s}
	case s == armor.Footer:
		return line{kind: kindEnd, raw: s}
	case strings.HasPrefix(s, hintPrefix):
		return line{kind: kindHint, raw: s, value: strings.TrimSpace(s[len(hintPrefix):])}
	case strings.HasPrefix(s, methodPrefix):
		return line{kind: kindMethod, raw: s, value: strings.TrimSpace(s[len(methodPrefix):])}
	default:
		return line{kind: kindPayload, raw: s, value: s}
	}
}

// Parse extracts the payload and metadata from a fenced block. The fences
// themselves are optional.
func Parse(text string) (*Block, error) {
	var lines []line
	for _, raw := range strings.Split(text, "\n") {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		l := classify(s)
		if l.kind == kindFence {
			continue
		}
		lines = append(lines, l)
	}

	b := &Block{}
	begin, end := -1, -1
	for i, l := range lines {
		switch l.kind {
		case kindHint:
			if begin < 0 {
				b.Hint = l.value
			}
		case kindMethod:
			if begin < 0 {
				b.Method = l.value
			}
		case kindBegin:
			if begin < 0 {
				begin = i
			}
		case kindEnd:
			if end < 0 {
				end = i
			}
		}
	}

	var payload []string
	switch {
	case begin < 0 && end < 0:
		// Legacy layout: every line that is not metadata.
		for _, l := range lines {
			if l.kind == kindPayload {
				payload = append(payload, l.value)
			}
		}
	case begin < 0:
		return nil, fmt.Errorf("%w: missing %s", ErrFormat, armor.Header)
	case end < 0:
		return nil, fmt.Errorf("%w: missing %s", ErrFormat, armor.Footer)
	case begin >= end:
		return nil, fmt.Errorf("%w: begin marker must precede end marker", ErrFormat)
	default:
		for _, l := range lines[begin+1 : end] {
			payload = append(payload, l.raw)
		}
	}

	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrFormat)
	}
	b.Content = strings.Join(payload, "\n")
	return b, nil
}
