package parse

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/hansard/pkg/hansard/internalerr"
)

// Fallback strips all markup and returns the page text as one unattributed
// speech. It is meant to be the last stage of a chain: it only rejects input
// that contains no markup at all.
type Fallback struct{}

// NewFallback creates the generic fallback stage.
func NewFallback() *Fallback {
	return &Fallback{}
}

// Name implements Stage.
func (f *Fallback) Name() string { return "fallback" }

// Attempt implements Stage.
func (f *Fallback) Attempt(doc string) (Result, error) {
	if !hasMarkup(doc) {
		return Result{}, fmt.Errorf("fallback: no markup found: %w", internalerr.ErrUnsupported)
	}

	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return Result{}, fmt.Errorf("fallback: parse html: %v: %w", err, internalerr.ErrUnsupported)
	}

	return Single("", "", strings.TrimSpace(textContent(root))), nil
}

// hasMarkup reports whether doc contains at least one element tag.
func hasMarkup(doc string) bool {
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			return true
		}
	}
}

func textContent(root *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return buf.String()
}
