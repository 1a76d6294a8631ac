package quote

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/shanehull/goldbot/internal/numeric"
)

var whitespaceRe = regexp.MustCompile(`[\n\t\r\s\xA0]+`)

// page caches the two views of a fetched body that strategies match against.
type page struct {
	body string

	text     string
	textDone bool

	doc    *goquery.Document
	docErr error
}

func newPage(body string) *page {
	return &page{body: body}
}

// Text is the visible text of the page, whitespace-collapsed with digits folded
// to ASCII.
func (p *page) Text() string {
	if !p.textDone {
		p.text = PageText(p.body)
		p.textDone = true
	}
	return p.text
}

func (p *page) Document() (*goquery.Document, error) {
	if p.doc == nil && p.docErr == nil {
		p.doc, p.docErr = goquery.NewDocumentFromReader(strings.NewReader(p.body))
	}
	return p.doc, p.docErr
}

// PageText renders an HTML (or plain text) body to a single line of visible text.
func PageText(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return collapse(body)
	}
	return collapse(extractText(doc))
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(numeric.NormalizeDigits(s), " "))
}

func extractText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return sb.String()
}
