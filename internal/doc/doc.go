// Package doc renders the documentation comments the lexer collects
// (the `///` variant, see lexer.Lexer.DocComments) to HTML. Neither
// the hetu embedding package nor cmd/hetu calls it; cmd/hetu has no
// `doc` subcommand.
package doc

import (
	"bytes"
	"sort"

	"github.com/yuin/goldmark"
)

// Comment is one rendered documentation comment: the source line the
// following declaration starts on, the raw markdown text the lexer
// collected, and its HTML rendering.
type Comment struct {
	Line     int32
	Markdown string
	HTML     string
}

// Render converts the lexer's line->markdown map into an ordered slice
// of rendered comments, one per declaration, sorted by source line so
// a generated doc page reads top to bottom the way the source does.
func Render(docComments map[int32]string) ([]Comment, error) {
	lines := make([]int32, 0, len(docComments))
	for line := range docComments {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })

	out := make([]Comment, 0, len(lines))
	for _, line := range lines {
		md := docComments[line]
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(md), &buf); err != nil {
			return nil, err
		}
		out = append(out, Comment{Line: line, Markdown: md, HTML: buf.String()})
	}
	return out, nil
}
