package downblog

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"go.abhg.dev/goldmark/frontmatter"
)

// PostMeta is the frontmatter of a markdown post.
type PostMeta struct {
	Title  string `yaml:"title" toml:"title"`
	Author string `yaml:"author" toml:"author"`
}

var markdownParser = goldmark.New(
	goldmark.WithExtensions(&frontmatter.Extender{}),
)

// ParseMarkdownPost reads a markdown document with optional YAML (---) or
// TOML (+++) frontmatter. Title and author come from the frontmatter; the
// text is the body exactly as written, with no rendering applied.
func ParseMarkdownPost(content []byte) (PostFields, error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))

	ctx := parser.NewContext()
	if err := markdownParser.Convert(content, io.Discard, parser.WithContext(ctx)); err != nil {
		return PostFields{}, fmt.Errorf("failed to parse markdown: %w", err)
	}

	data := frontmatter.Get(ctx)
	if data == nil {
		return PostFields{Text: string(content)}, nil
	}

	var meta PostMeta
	if err := data.Decode(&meta); err != nil {
		return PostFields{}, fmt.Errorf("failed to decode frontmatter: %w", err)
	}

	return PostFields{Title: meta.Title, Text: markdownBody(content), Author: meta.Author}, nil
}

// markdownBody strips a leading frontmatter block and the blank lines after it.
func markdownBody(content []byte) string {
	source := string(content)

	for _, delim := range []string{"---", "+++"} {
		rest, ok := strings.CutPrefix(source, delim+"\n")
		if !ok {
			continue
		}

		lines := strings.SplitAfter(rest, "\n")
		offset := 0
		for _, line := range lines {
			offset += len(line)
			if strings.TrimRight(line, " \t\n") == delim {
				return strings.TrimLeft(rest[offset:], "\n")
			}
		}
	}

	return source
}
