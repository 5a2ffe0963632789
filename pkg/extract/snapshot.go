package extract

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// Snapshot is a parsed copy of the page at one instant. CSS and XPath queries
// run over the same tree, so a node found by one can be handed to the other.
type Snapshot struct {
	root *html.Node
	doc  *goquery.Document
}

// Parse reads an HTML document into a snapshot
func Parse(r io.Reader) (*Snapshot, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(root), nil
}

// ParseString is Parse for an in-memory document
func ParseString(s string) (*Snapshot, error) {
	return Parse(strings.NewReader(s))
}

// NewSnapshot wraps an already parsed tree
func NewSnapshot(root *html.Node) *Snapshot {
	return &Snapshot{root: root, doc: goquery.NewDocumentFromNode(root)}
}

// Root returns the document node
func (s *Snapshot) Root() *html.Node {
	return s.root
}

// Find returns a selection of every node matching sel, in document order
func (s *Snapshot) Find(sel cascadia.Selector) *goquery.Selection {
	return s.doc.FindMatcher(sel)
}

// CSS returns every node matching sel, in document order
func (s *Snapshot) CSS(sel cascadia.Selector) []*html.Node {
	return s.Find(sel).Nodes
}

// XPath evaluates expr from the document root
func (s *Snapshot) XPath(expr *xpath.Expr) []*html.Node {
	return htmlquery.QuerySelectorAll(s.root, expr)
}

// Text returns the rendered text of the whole document
func (s *Snapshot) Text() string {
	return NodeText(s.root)
}

// NodeText returns the visible text below n. Inline emoji images contribute
// their alt text, and script and style content is skipped.
func NodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "img":
				b.WriteString(htmlquery.SelectAttr(n, "alt"))
				return
			case "br":
				b.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// trimmedText is NodeText with surrounding whitespace removed
func trimmedText(n *html.Node) string {
	return strings.TrimSpace(NodeText(n))
}

// selectionText is trimmedText of the first node of sel
func selectionText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return trimmedText(sel.Get(0))
}

// firstAttr returns the first non-empty pick of attribute name across sel
func firstAttr(sel *goquery.Selection, name string, pick func(string) string) string {
	var out string
	sel.EachWithBreak(func(_ int, c *goquery.Selection) bool {
		out = pick(c.AttrOr(name, ""))
		return out == ""
	})
	return out
}

func attr(n *html.Node, name string) string {
	return htmlquery.SelectAttr(n, name)
}

func first(nodes []*html.Node) *html.Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// queryIn finds matches below n only
func queryIn(n *html.Node, sel cascadia.Selector) []*html.Node {
	return sel.MatchAll(n)
}

func xpathIn(n *html.Node, expr *xpath.Expr) []*html.Node {
	return htmlquery.QuerySelectorAll(n, expr)
}
