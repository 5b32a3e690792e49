// Package archive moves entries between the database and a directory of Markdown files
// carrying YAML front matter.
package archive

import (
	"bytes"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"notebook/app/internal/domain/blog"
)

const delimiter = "---"

// ErrMalformedDocument is returned when a file's front matter cannot be parsed.
var ErrMalformedDocument = eris.New("malformed archive document")

// Document is one entry as stored on disk.
type Document struct {
	Title     string
	Slug      string
	Published bool
	Timestamp time.Time
	Content   string
}

type frontMatter struct {
	Title     string    `yaml:"title"`
	Slug      string    `yaml:"slug,omitempty"`
	Published bool      `yaml:"published"`
	Timestamp time.Time `yaml:"timestamp,omitempty"`
}

// DocumentFromEntry converts a stored entry into its archive form.
func DocumentFromEntry(entry blog.Entry) Document {
	return Document{
		Title:     entry.Title,
		Slug:      entry.Slug,
		Published: entry.Published,
		Timestamp: entry.Timestamp.UTC(),
		Content:   entry.Content,
	}
}

// Input converts the document into a save request. The caller sets the ID when the
// document replaces an existing entry.
func (d Document) Input() blog.EntryInput {
	return blog.EntryInput{
		Title:     d.Title,
		Slug:      d.Slug,
		Content:   d.Content,
		Published: d.Published,
		Timestamp: d.Timestamp,
	}
}

// Encode renders the document as front matter followed by the Markdown body.
func Encode(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(frontMatter{
		Title:     doc.Title,
		Slug:      doc.Slug,
		Published: doc.Published,
		Timestamp: doc.Timestamp,
	}); err != nil {
		return nil, eris.Wrap(err, "encoding front matter")
	}
	if err := encoder.Close(); err != nil {
		return nil, eris.Wrap(err, "closing front matter encoder")
	}

	buf.WriteString(delimiter + "\n")
	if doc.Content != "" {
		buf.WriteString(doc.Content)
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// Decode parses a Markdown file. A file without front matter is treated as a body with
// no metadata, so the caller still has to supply a title.
func Decode(data []byte) (Document, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	if !strings.HasPrefix(text, delimiter+"\n") {
		return Document{Content: text}, nil
	}

	rest := text[len(delimiter)+1:]
	header, body, ok := splitFrontMatter(rest)
	if !ok {
		return Document{}, eris.Wrap(ErrMalformedDocument, "front matter has no closing delimiter")
	}

	var meta frontMatter
	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return Document{}, eris.Wrapf(ErrMalformedDocument, "parsing front matter: %v", err)
	}

	return Document{
		Title:     meta.Title,
		Slug:      meta.Slug,
		Published: meta.Published,
		Timestamp: meta.Timestamp,
		Content:   strings.TrimSuffix(body, "\n"),
	}, nil
}

// splitFrontMatter finds the closing delimiter on a line of its own.
func splitFrontMatter(rest string) (string, string, bool) {
	if strings.HasPrefix(rest, delimiter+"\n") {
		return "", rest[len(delimiter)+1:], true
	}
	if rest == delimiter {
		return "", "", true
	}

	if idx := strings.Index(rest, "\n"+delimiter+"\n"); idx >= 0 {
		return rest[:idx+1], rest[idx+len(delimiter)+2:], true
	}
	if strings.HasSuffix(rest, "\n"+delimiter) {
		return strings.TrimSuffix(rest, delimiter), "", true
	}

	return "", "", false
}
