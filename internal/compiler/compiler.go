package compiler

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/pipe01/civmark/internal/parser/ast"
	"golang.org/x/exp/slices"
)

// FmtError wraps a failure of the writer the HTML is being written to.
type FmtError struct {
	Inner error
}

func (e *FmtError) Unwrap() error {
	return e.Inner
}

func (e *FmtError) Error() string {
	return fmt.Sprintf("write output: %s", e.Inner)
}

// linkSchemes are the URL schemes a link may point to. Relative URLs are always allowed.
var linkSchemes = []string{"http", "https", "mailto", "ftp"}

// isSafeURL reports whether raw can be used as a link target. Links to anything else,
// such as javascript: URLs, are rendered without a target.
func isSafeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return u.Scheme == "" || slices.Contains(linkSchemes, strings.ToLower(u.Scheme))
}

// sink receives the elements produced by the tree walk, in document order.
type sink interface {
	openTag(key int, name string, attrs []Attribute)
	closeTag(name string)
	emptyTag(key int, name string, attrs []Attribute)
	text(key int, s string)
}

// CompileTo writes nodes as HTML to w.
func CompileTo(w io.Writer, nodes []ast.Node) error {
	out := &outputWriter{
		w: w,
	}
	ctx := context{
		out: out,
	}

	if err := ctx.visitNodes(nodes); err != nil {
		return err
	}
	if out.err != nil {
		return &FmtError{Inner: out.err}
	}

	return nil
}

func Compile(nodes []ast.Node) (string, error) {
	var b strings.Builder

	if err := CompileTo(&b, nodes); err != nil {
		return "", err
	}

	return b.String(), nil
}

// CompileToStruct builds the element tree for nodes. Keys start at 0 on every call and
// generated ids are scoped by noteID, so several notes can be rendered on one page.
func CompileToStruct(nodes []ast.Node, noteID int) ([]Element, error) {
	b := &elementBuilder{}
	ctx := context{
		out:    b,
		noteID: noteID,
		scoped: true,
	}

	if err := ctx.visitNodes(nodes); err != nil {
		return nil, err
	}

	return b.roots, nil
}

type context struct {
	out sink

	noteID int
	scoped bool

	key int
}

func (c *context) nextKey() int {
	k := c.key
	c.key++
	return k
}

func (c *context) annotationID(prefix string, key int) string {
	if c.scoped {
		return fmt.Sprintf("%s-%d-%d", prefix, c.noteID, key)
	}

	return fmt.Sprintf("%s-%d", prefix, key)
}

func (c *context) visitNodes(nodes []ast.Node) error {
	var err error

	for _, n := range nodes {
		err = c.visitNode(n)
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *context) visitNode(n ast.Node) error {
	switch n := n.(type) {
	case *ast.NodeText:
		c.out.text(c.nextKey(), n.Text)

	case *ast.NodeParagraph:
		return c.visitTag("p", nil, n.Nodes)

	case *ast.NodeStrong:
		return c.visitTag("strong", nil, n.Nodes)

	case *ast.NodeUnderlined:
		return c.visitTag("u", nil, n.Nodes)

	case *ast.NodeQuotation:
		return c.visitTag("q", nil, n.Nodes)

	case *ast.NodeHighlight:
		return c.visitTag("mark", nil, n.Nodes)

	case *ast.NodeLink:
		var attrs []Attribute
		if isSafeURL(n.URL) {
			attrs = append(attrs, Attribute{Name: "href", Value: n.URL})
		}

		return c.visitTag("a", attrs, n.Nodes)

	case *ast.NodeListItem:
		return c.visitTag("li", nil, n.Nodes)

	case *ast.NodeUnorderedList:
		return c.visitTag("ul", nil, n.Nodes)

	case *ast.NodeOrderedList:
		var attrs []Attribute
		if n.Start != 1 {
			attrs = append(attrs, Attribute{Name: "start", Value: strconv.Itoa(n.Start)})
		}

		return c.visitTag("ol", attrs, n.Nodes)

	case *ast.NodeBlockquote:
		return c.visitTag("blockquote", nil, n.Nodes)

	case *ast.NodeCodeblock:
		c.visitCodeblock(n)

	case *ast.NodeImage:
		c.out.emptyTag(c.nextKey(), "img", []Attribute{
			{Name: "src", Value: n.Src},
			{Name: "alt", Value: n.Alt},
		})

	case *ast.NodeHorizontalRule:
		c.out.emptyTag(c.nextKey(), "hr", nil)

	case *ast.NodeSidenote:
		return c.visitAnnotation(sidenote, n.Nodes)

	case *ast.NodeMarginnote:
		return c.visitAnnotation(marginnote, n.Nodes)

	default:
		return fmt.Errorf("unknown node type %T", n)
	}

	return nil
}

func (c *context) visitTag(name string, attrs []Attribute, children []ast.Node) error {
	c.out.openTag(c.nextKey(), name, attrs)

	if err := c.visitNodes(children); err != nil {
		return err
	}

	c.out.closeTag(name)
	return nil
}

func (c *context) visitCodeblock(n *ast.NodeCodeblock) {
	var attrs []Attribute
	if n.Language != "" {
		attrs = append(attrs, Attribute{Name: "class", Value: "language-" + n.Language})
	}

	c.out.openTag(c.nextKey(), "pre", nil)
	c.out.openTag(c.nextKey(), "code", attrs)
	c.out.text(c.nextKey(), n.Code)
	c.out.closeTag("code")
	c.out.closeTag("pre")
}

type annotation struct {
	idPrefix   string
	labelClass string
	labelText  string
	spanClass  string
}

var (
	sidenote = annotation{
		idPrefix:   "sn",
		labelClass: "margin-toggle sidenote-number",
		spanClass:  "sidenote",
	}
	marginnote = annotation{
		idPrefix:   "mn",
		labelClass: "margin-toggle",
		labelText:  "⊕",
		spanClass:  "marginnote",
	}
)

// visitAnnotation expands a side or margin note into a toggle label, the checkbox it
// toggles and the note itself. The stylesheet relies on the three being siblings.
func (c *context) visitAnnotation(a annotation, children []ast.Node) error {
	labelKey := c.nextKey()
	id := c.annotationID(a.idPrefix, labelKey)

	labelAttrs := []Attribute{
		{Name: "for", Value: id},
		{Name: "class", Value: a.labelClass},
	}

	if a.labelText == "" {
		c.out.emptyTag(labelKey, "label", labelAttrs)
	} else {
		c.out.openTag(labelKey, "label", labelAttrs)
		c.out.text(c.nextKey(), a.labelText)
		c.out.closeTag("label")
	}

	c.out.emptyTag(c.nextKey(), "input", []Attribute{
		{Name: "type", Value: "checkbox"},
		{Name: "id", Value: id},
		{Name: "class", Value: "margin-toggle"},
	})

	return c.visitTag("span", []Attribute{{Name: "class", Value: a.spanClass}}, children)
}
