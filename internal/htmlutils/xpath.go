// Package htmlutils runs XPath queries over vendor portal pages.
//
// Portal markup is rarely well-formed XML, so pages are first parsed with the
// HTML5 tokenizer of golang.org/x/net/html, stripped of script and style
// elements, re-rendered and only then handed to xmlpath.
package htmlutils

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"gopkg.in/xmlpath.v2"
)

// ParseHTML normalizes body and returns the xmlpath root node.
func ParseHTML(body []byte) (*xmlpath.Node, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	stripElements(doc, "script", "style", "noscript")

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}

	root, err := xmlpath.ParseHTML(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build XPath tree: %w", err)
	}
	return root, nil
}

func stripElements(n *html.Node, names ...string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && contains(names, c.Data) {
			n.RemoveChild(c)
		} else {
			stripElements(c, names...)
		}
		c = next
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Nodes returns every node matched by xpath under root.
func Nodes(root *xmlpath.Node, xpath string) ([]*xmlpath.Node, error) {
	path, err := xmlpath.Compile(xpath)
	if err != nil {
		return nil, fmt.Errorf("failed to compile XPath %q: %w", xpath, err)
	}

	var nodes []*xmlpath.Node
	iter := path.Iter(root)
	for iter.Next() {
		nodes = append(nodes, iter.Node())
	}
	return nodes, nil
}

// Texts returns the cleaned text of every node matched by xpath.
func Texts(root *xmlpath.Node, xpath string) ([]string, error) {
	nodes, err := Nodes(root, xpath)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(nodes))
	for _, n := range nodes {
		values = append(values, CleanText(n.String()))
	}
	return values, nil
}

// First returns the cleaned text of the first match, and false when nothing matches.
func First(root *xmlpath.Node, xpath string) (string, bool, error) {
	values, err := Texts(root, xpath)
	if err != nil {
		return "", false, err
	}
	if len(values) == 0 {
		return "", false, nil
	}
	return values[0], true, nil
}

// GetOrEmpty returns slice[index], or an empty string when out of bounds.
func GetOrEmpty(slice []string, index int) string {
	if index >= 0 && index < len(slice) {
		return slice[index]
	}
	return ""
}

// CleanText collapses whitespace (non-breaking spaces included) and trims.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
