package htmlutil

import (
	"bytes"

	"wris-inventory/lib/textutil"

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
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// Text returns the visible text of the first node in the selection, cleaned
// the same way option labels are.
func Text(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return textutil.CleanLabel(GetText(sel.Nodes[0]))
}

// ParseFragment parses an HTML fragment (such as an element's outerHTML)
// into a document that can be queried with goquery.
func ParseFragment(fragment string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewBufferString(fragment))
}
