package nav

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoPageContent is returned when a fetched document has no
// .page-content container. The caller treats it like a failed fetch.
var ErrNoPageContent = errors.New("page content container missing")

// page holds the pieces of a fetched document the router cares about.
type page struct {
	Title   string // <title> text, may be empty
	Header  string // .page-title text, may be empty
	Content string // inner HTML of the .page-content container
}

func parsePage(body string) (*page, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	var pg page
	var content *html.Node

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "title" && pg.Title == "":
				pg.Title = textOf(n)
			case hasClass(n, "page-title") && pg.Header == "":
				pg.Header = textOf(n)
			case hasClass(n, "page-content") && content == nil:
				content = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if content == nil {
		return nil, ErrNoPageContent
	}

	var sb strings.Builder
	for c := content.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return nil, err
		}
	}
	pg.Content = sb.String()
	return &pg, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
