package markdown

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const externalLinkRel = "nofollow noopener"

// Renderer converts entry markup into HTML.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer constructs a renderer with tables, strikethrough, autolinks, task lists,
// footnotes and definition lists enabled. Raw HTML in the source is passed through.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.DefinitionList,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithUnsafe(),
		),
	)

	return &Renderer{md: md}
}

// Render converts source to HTML and marks links leaving the site as nofollow.
func (r *Renderer) Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", eris.Wrap(err, "converting markdown")
	}

	rendered, err := rewriteExternalLinks(buf.String())
	if err != nil {
		return "", err
	}

	return rendered, nil
}

// Excerpt renders source and returns at most limit runes of its visible text, with
// whitespace collapsed. An ellipsis marks truncated text.
func (r *Renderer) Excerpt(source string, limit int) (string, error) {
	if limit <= 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", eris.Wrap(err, "converting markdown")
	}

	text, err := visibleText(buf.String())
	if err != nil {
		return "", err
	}

	if utf8.RuneCountInString(text) <= limit {
		return text, nil
	}

	runes := []rune(text)
	cut := strings.TrimRightFunc(string(runes[:limit]), unicode.IsSpace)
	return cut + "…", nil
}

func rewriteExternalLinks(content string) (string, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(content), container)
	if err != nil {
		return "", eris.Wrap(err, "parsing rendered html")
	}

	var builder strings.Builder
	for _, node := range nodes {
		markExternalLinks(node)
		if err := html.Render(&builder, node); err != nil {
			return "", eris.Wrap(err, "rendering html")
		}
	}

	return builder.String(), nil
}

func markExternalLinks(node *html.Node) {
	if node.Type == html.ElementNode && node.DataAtom == atom.A && isExternal(attr(node, "href")) {
		setAttr(node, "rel", externalLinkRel)
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		markExternalLinks(child)
	}
}

func isExternal(href string) bool {
	lowered := strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(lowered, "http://") ||
		strings.HasPrefix(lowered, "https://") ||
		strings.HasPrefix(lowered, "//")
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(node *html.Node, key, value string) {
	for i := range node.Attr {
		if node.Attr[i].Key == key {
			node.Attr[i].Val = value
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: value})
}

func visibleText(content string) (string, error) {
	tokenizer := html.NewTokenizer(strings.NewReader(content))

	var builder strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != nil && !errors.Is(err, io.EOF) {
				return "", eris.Wrap(err, "tokenizing rendered html")
			}
			return strings.Join(strings.Fields(builder.String()), " "), nil
		case html.StartTagToken:
			if isHiddenTag(tokenizer) {
				skipDepth++
			}
		case html.EndTagToken:
			if skipDepth > 0 && isHiddenTag(tokenizer) {
				skipDepth--
			}
			if isBlockTag(tokenizer) {
				builder.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			builder.WriteByte(' ')
		case html.TextToken:
			if skipDepth == 0 {
				builder.Write(tokenizer.Text())
			}
		}
	}
}

func isHiddenTag(tokenizer *html.Tokenizer) bool {
	name, _ := tokenizer.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style:
		return true
	default:
		return false
	}
}

func isBlockTag(tokenizer *html.Tokenizer) bool {
	name, _ := tokenizer.TagName()
	switch atom.Lookup(name) {
	case atom.P, atom.Div, atom.Li, atom.Blockquote, atom.Pre, atom.Tr, atom.Td, atom.Th,
		atom.Dd, atom.Dt, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	default:
		return false
	}
}
