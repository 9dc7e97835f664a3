package ui

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
)

// RenderText flattens a component tree to plain text, one block per line.
func RenderText(c Component) string {
	var lines []string
	renderText(c, &lines)
	return strings.Join(lines, "\n")
}

func renderText(c Component, lines *[]string) {
	switch c.Type {
	case NodePanel:
		for _, child := range c.Children {
			renderText(child, lines)
		}
	case NodeHeading:
		*lines = append(*lines, "# "+c.Value)
	case NodeDivider:
		*lines = append(*lines, "---")
	default:
		*lines = append(*lines, c.Value)
	}
}

var markdown = goldmark.New()

// RenderHTML renders a component tree to an HTML fragment. Text nodes are
// converted from markdown; copyable values are escaped verbatim.
func RenderHTML(c Component) (string, error) {
	var buf bytes.Buffer
	if err := renderHTML(c, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHTML(c Component, buf *bytes.Buffer) error {
	switch c.Type {
	case NodePanel:
		buf.WriteString("<div class=\"panel\">\n")
		for _, child := range c.Children {
			if err := renderHTML(child, buf); err != nil {
				return err
			}
		}
		buf.WriteString("</div>\n")
	case NodeHeading:
		buf.WriteString("<h2>" + html.EscapeString(c.Value) + "</h2>\n")
	case NodeDivider:
		buf.WriteString("<hr>\n")
	case NodeCopyable:
		buf.WriteString("<pre class=\"copyable\"><code>" + html.EscapeString(c.Value) + "</code></pre>\n")
	default:
		if err := markdown.Convert([]byte(c.Value), buf); err != nil {
			return err
		}
	}
	return nil
}
