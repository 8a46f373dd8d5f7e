package parser

import (
	"strings"

	"github.com/pipe01/civmark/internal/lexer"
	. "github.com/pipe01/civmark/internal/parser/ast"
	"golang.org/x/exp/slices"
)

// inlineParser turns the tokens of a single line into inline nodes. Spans can nest but
// never cross: a closer that belongs to an enclosing span ends the inner one unclosed.
type inlineParser struct {
	tokens []lexer.Token
	index  int

	// Closers of the spans currently being parsed, innermost last
	open []lexer.TokenType
}

func parseInline(tokens []lexer.Token) []Node {
	p := inlineParser{
		tokens: tokens,
	}

	// EOF never shows up inside a line, so the outermost span is never closed
	nodes, _ := p.parseSpan(lexer.TokenEOF)
	return nodes
}

func (p *inlineParser) parseSpan(closer lexer.TokenType) (nodes []Node, closed bool) {
	parens := 0

	for p.index < len(p.tokens) {
		tk := &p.tokens[p.index]

		if tk.Type == lexer.TokenParenClose && parens > 0 {
			parens--
			p.index++
			nodes = appendText(nodes, tk.Start, tk.Raw)
			continue
		}

		if tk.Type == closer {
			p.index++
			return nodes, true
		}

		if slices.Contains(p.open, tk.Type) {
			return nodes, false
		}

		p.index++

		switch {
		case tk.Type.IsSymmetric(), tk.Type.IsParenSpan():
			nodes = appendNodes(nodes, p.parseSpanNode(tk)...)

		case tk.Type == lexer.TokenParenOpen:
			parens++
			nodes = appendText(nodes, tk.Start, tk.Raw)

		default:
			nodes = appendText(nodes, tk.Start, tk.Raw)
		}
	}

	return nodes, false
}

// parseSpanNode parses the contents of the span opened by opener. A span that is never
// closed, or that is closed with nothing inside, is kept as literal text.
func (p *inlineParser) parseSpanNode(opener *lexer.Token) []Node {
	closer := opener.Type
	if opener.Type.IsParenSpan() {
		closer = lexer.TokenParenClose
	}

	p.open = append(p.open, closer)
	children, closed := p.parseSpan(closer)
	p.open = p.open[:len(p.open)-1]

	if opener.Type.IsParenSpan() {
		children = trimLeadingSpace(children)
	}
	if closed && len(children) == 0 && opener.Type == lexer.TokenLink {
		children = []Node{&NodeText{
			Pos:  Pos(opener.Start),
			Text: opener.Value,
		}}
	}

	if !closed || len(children) == 0 {
		nodes := appendText(nil, opener.Start, opener.Raw)
		nodes = appendNodes(nodes, children...)

		if closed {
			tkClose := &p.tokens[p.index-1]
			nodes = appendText(nodes, tkClose.Start, tkClose.Raw)
		}

		return nodes
	}

	pos := Pos(opener.Start)

	switch opener.Type {
	case lexer.TokenStrong:
		return []Node{&NodeStrong{Pos: pos, Nodes: children}}
	case lexer.TokenUnderline:
		return []Node{&NodeUnderlined{Pos: pos, Nodes: children}}
	case lexer.TokenQuotation:
		return []Node{&NodeQuotation{Pos: pos, Nodes: children}}
	case lexer.TokenHighlight:
		return []Node{&NodeHighlight{Pos: pos, Nodes: children}}
	case lexer.TokenSidenote:
		return []Node{&NodeSidenote{Pos: pos, Nodes: children}}
	case lexer.TokenMarginnote:
		return []Node{&NodeMarginnote{Pos: pos, Nodes: children}}
	case lexer.TokenLink:
		return []Node{&NodeLink{Pos: pos, URL: opener.Value, Nodes: children}}
	}

	return children
}

// appendText adds text to nodes, merging it into the last node if that is text too.
func appendText(nodes []Node, start lexer.Location, text string) []Node {
	if len(nodes) > 0 {
		if last, ok := nodes[len(nodes)-1].(*NodeText); ok {
			last.Text += text
			return nodes
		}
	}

	return append(nodes, &NodeText{
		Pos:  Pos(start),
		Text: text,
	})
}

func appendNodes(nodes []Node, more ...Node) []Node {
	for _, n := range more {
		if txt, ok := n.(*NodeText); ok {
			nodes = appendText(nodes, txt.Position(), txt.Text)
		} else {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

func trimLeadingSpace(nodes []Node) []Node {
	if len(nodes) == 0 {
		return nodes
	}

	txt, ok := nodes[0].(*NodeText)
	if !ok {
		return nodes
	}

	txt.Text = strings.TrimLeft(txt.Text, " \t")
	if txt.Text == "" {
		return nodes[1:]
	}

	return nodes
}
