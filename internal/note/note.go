// Package note locates and rewrites encrypted blocks inside markdown notes.
package note

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"mdage/internal/block"
)

// Span is the byte range of one fenced age block, fences included. The
// trailing newline after the closing fence is not part of the span.
type Span struct {
	Start int
	End   int
}

// Text returns the block text covered by s.
func (s Span) Text(doc string) string {
	return doc[s.Start:s.End]
}

// FindBlocks returns the spans of every ```age fence in doc, in order.
// An unterminated fence is ignored.
func FindBlocks(doc string) []Span {
	var spans []Span
	open := -1
	offset := 0

	for offset < len(doc) {
		end := strings.IndexByte(doc[offset:], '\n')
		lineEnd := len(doc)
		next := len(doc)
		if end >= 0 {
			lineEnd = offset + end
			next = lineEnd + 1
		}
		line := strings.TrimSpace(strings.TrimSuffix(doc[offset:lineEnd], "\r"))

		switch {
		case open < 0 && line == "```"+block.Language:
			open = offset
		case open >= 0 && line == "```":
			spans = append(spans, Span{Start: open, End: lineEnd})
			open = -1
		}
		offset = next
	}
	return spans
}

// Replace returns doc with span replaced by text.
func Replace(doc string, span Span, text string) string {
	return doc[:span.Start] + text + doc[span.End:]
}

// ReplaceAll replaces every span with the matching entry of texts. Spans
// must come from FindBlocks on the same doc.
func ReplaceAll(doc string, spans []Span, texts []string) string {
	var b strings.Builder
	last := 0
	for i, s := range spans {
		b.WriteString(doc[last:s.Start])
		b.WriteString(texts[i])
		last = s.End
	}
	b.WriteString(doc[last:])
	return b.String()
}

// SplitFrontmatter separates leading YAML frontmatter from the body. front
// keeps its delimiters and trailing newline so front+body == doc. A block
// that is not valid YAML is treated as body.
func SplitFrontmatter(doc string) (front, body string) {
	const delim = "---"

	data := []byte(doc)
	if !bytes.HasPrefix(data, []byte(delim+"\n")) && !bytes.HasPrefix(data, []byte(delim+"\r\n")) {
		return "", doc
	}

	start := bytes.IndexByte(data, '\n') + 1
	idx := bytes.Index(data[start:], []byte("\n"+delim))
	if idx < 0 {
		return "", doc
	}
	yamlBlock := data[start : start+idx]

	// The closing delimiter must be alone on its line.
	closeStart := start + idx + 1
	closeEnd := closeStart + len(delim)
	rest := data[closeEnd:]
	switch {
	case len(rest) == 0:
	case bytes.HasPrefix(rest, []byte("\n")):
		closeEnd++
	case bytes.HasPrefix(rest, []byte("\r\n")):
		closeEnd += 2
	default:
		return "", doc
	}

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return "", doc
	}

	return doc[:closeEnd], doc[closeEnd:]
}

// Frontmatter decodes the leading YAML frontmatter of doc. It returns nil
// when there is none.
func Frontmatter(doc string) map[string]any {
	front, _ := SplitFrontmatter(doc)
	if front == "" {
		return nil
	}
	lines := strings.Split(strings.TrimRight(front, "\r\n"), "\n")
	var fm map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:len(lines)-1], "\n")), &fm); err != nil {
		return nil
	}
	return fm
}
