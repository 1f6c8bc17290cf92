package htmlutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrNotFound is returned when a queried element or attribute does not exist.
var ErrNotFound = errors.New("element not found")

// Page is the subset of DOM querying the scrapers need.
type Page interface {
	// Text returns the raw text content of the first element matching selector.
	Text(selector string) (string, error)
	// Attr returns the attribute of the first element matching selector.
	Attr(selector, attr string) (string, error)
}

// ParseFunc turns a response body into a Page.
type ParseFunc func(body []byte) (Page, error)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

type document struct {
	doc *goquery.Document
}

// ParsePage is the goquery implementation of ParseFunc.
func ParsePage(body []byte) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return document{doc: doc}, nil
}

func (d document) Text(selector string) (string, error) {
	sel := d.doc.Find(selector).First()
	if len(sel.Nodes) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return GetText(sel.Nodes[0]), nil
}

func (d document) Attr(selector, attr string) (string, error) {
	sel := d.doc.Find(selector).First()
	if len(sel.Nodes) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	value, exists := sel.Attr(attr)
	if !exists {
		return "", fmt.Errorf("%w: %s[%s]", ErrNotFound, selector, attr)
	}
	return value, nil
}

// EmbeddedJSON reads the text of the element matching selector,
// HTML-unescapes it and decodes it as JSON into out.
func EmbeddedJSON(page Page, selector string, out any) error {
	text, err := page.Text(selector)
	if err != nil {
		return err
	}
	err = json.Unmarshal([]byte(html.UnescapeString(text)), out)
	if err != nil {
		return fmt.Errorf("decode json in %s: %w", selector, err)
	}
	return nil
}

// InputValue returns the value of the <input> with the given name.
func InputValue(page Page, name string) (string, error) {
	return page.Attr(fmt.Sprintf(`input[name="%s"]`, name), "value")
}
