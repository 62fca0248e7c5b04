package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

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
	// <br> separates words visually but has no text node of its own
	if node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteByte(' ')
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// NormalizeText turns every kind of whitespace (including &nbsp;) into a
// single space, drops non-printable characters and trims the result.
func NormalizeText(s string) string {
	out := strings.Builder{}
	for _, c := range s {
		if unicode.IsSpace(c) {
			out.WriteRune(' ')
			continue
		}
		if unicode.IsPrint(c) {
			out.WriteRune(c)
		}
	}
	text := strings.Trim(out.String(), " ")
	return innerWhitespace.ReplaceAllString(text, " ")
}

// CellText returns the normalized text of the first node in the selection,
// nil means that there is no such node.
func CellText(sel *goquery.Selection) *string {
	if sel == nil || len(sel.Nodes) == 0 {
		return nil
	}
	text := NormalizeText(GetText(sel.Nodes[0]))
	return &text
}
