package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pipe01/civmark/internal/lexer"
	. "github.com/pipe01/civmark/internal/parser/ast"
)

var (
	ErrLastTokenEOF           = errors.New("last token must be EOF")
	ErrExpectedToEatAll       = errors.New("parser expected to consume all tokens")
	ErrUnterminatedCodeblock  = errors.New("codeblock is never closed")
	ErrUnterminatedBlockquote = errors.New("blockquote is never closed")
)

type ParserError struct {
	Inner    error
	Location lexer.Location
}

func (e *ParserError) Unwrap() error {
	return e.Inner
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("%s at %s", e.Inner, &e.Location)
}

func (e *ParserError) At() lexer.Location {
	return e.Location
}

type parser struct {
	tokens []lexer.Token
	index  int

	errs []*ParserError
}

// Parse reads block level nodes until the EOF token, which is left in the returned
// remaining tokens.
func Parse(tokens []lexer.Token) (remaining []lexer.Token, nodes []Node, err error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokenEOF {
		return nil, nil, ErrLastTokenEOF
	}

	p := parser{
		tokens: tokens,
	}

	nodes = p.parseBlocks(false)
	if len(p.errs) > 0 {
		return nil, nil, p.errs[0]
	}

	return tokens[p.index:], nodes, nil
}

// ParseAll parses tokens and checks that nothing but the EOF token was left over.
func ParseAll(tokens []lexer.Token) ([]Node, error) {
	rest, nodes, err := Parse(tokens)
	if err != nil {
		return nil, err
	}

	if len(rest) > 1 || (len(rest) == 1 && rest[0].Type != lexer.TokenEOF) {
		return nil, &ParserError{
			Inner:    ErrExpectedToEatAll,
			Location: rest[0].Start,
		}
	}

	return nodes, nil
}

func (p *parser) take() (tk *lexer.Token) {
	if p.index >= len(p.tokens) {
		return &p.tokens[len(p.tokens)-1] // Last token should be EOF
	}

	tk = &p.tokens[p.index]
	p.index++

	return tk
}

func (p *parser) peek() *lexer.Token {
	return p.peekAt(p.index)
}

func (p *parser) peekAt(idx int) *lexer.Token {
	if idx >= len(p.tokens) {
		return &p.tokens[len(p.tokens)-1]
	}

	return &p.tokens[idx]
}

// peekHeadAt returns the first token of the line starting at idx, ignoring indentation.
func (p *parser) peekHeadAt(idx int) *lexer.Token {
	tk := p.peekAt(idx)
	if tk.Type == lexer.TokenWhitespace {
		return p.peekAt(idx + 1)
	}

	return tk
}

func (p *parser) peekHead() *lexer.Token {
	return p.peekHeadAt(p.index)
}

func (p *parser) skipWhitespace() {
	if p.peek().Type == lexer.TokenWhitespace {
		p.take()
	}
}

func (p *parser) addErrorAt(err error, pos lexer.Location) {
	p.errs = append(p.errs, &ParserError{
		Inner:    err,
		Location: pos,
	})
}

// skipBlankLines moves past lines holding nothing but whitespace.
func (p *parser) skipBlankLines() {
	for {
		i := p.index
		for i < len(p.tokens) && isBlank(&p.tokens[i]) {
			i++
		}

		switch p.peekAt(i).Type {
		case lexer.TokenNewLine:
			p.index = i + 1
		case lexer.TokenEOF:
			p.index = i
			return
		default:
			return
		}
	}
}

// takeLine consumes the rest of the current line, leaving the newline in place.
func (p *parser) takeLine() []lexer.Token {
	start := p.index

	for {
		switch p.peek().Type {
		case lexer.TokenNewLine, lexer.TokenEOF:
			return p.tokens[start:p.index]
		}

		p.take()
	}
}

func (p *parser) parseBlocks(inBlockquote bool) (nodes []Node) {
	for len(p.errs) == 0 {
		p.skipBlankLines()

		var parsed []Node

		switch p.peekHead().Type {
		case lexer.TokenEOF:
			return nodes

		case lexer.TokenBlockquoteEnd:
			if inBlockquote {
				return nodes
			}

			// A stray end marker reads as text
			parsed = p.parseParagraph()

		case lexer.TokenOrderedListMarker:
			parsed = p.parseList(lexer.TokenOrderedListMarker)

		case lexer.TokenUnorderedListMarker:
			parsed = p.parseList(lexer.TokenUnorderedListMarker)

		case lexer.TokenCodeBlockStart:
			parsed = p.parseCodeBlock()

		case lexer.TokenBlockquoteStart:
			parsed = p.parseBlockquote()

		case lexer.TokenHorizontalRule:
			tk := p.take()
			parsed = []Node{&NodeHorizontalRule{Pos: Pos(tk.Start)}}

		case lexer.TokenImage:
			parsed = p.parseImage()

		default:
			parsed = p.parseParagraph()
		}

		nodes = append(nodes, parsed...)
	}

	return nodes
}

func (p *parser) parseParagraph() []Node {
	p.skipWhitespace()

	start := p.peek().Start
	nodes := trimLeadingSpace(parseInline(p.takeLine()))

	if len(nodes) == 0 {
		return nil
	}

	return []Node{&NodeParagraph{
		Pos:   Pos(start),
		Nodes: nodes,
	}}
}

func (p *parser) parseList(marker lexer.TokenType) []Node {
	var items []Node
	var first *lexer.Token

	for {
		p.skipWhitespace()

		tkMarker := p.take()
		if first == nil {
			first = tkMarker
		}

		item := &NodeListItem{
			Pos:   Pos(tkMarker.Start),
			Nodes: trimLeadingSpace(parseInline(p.takeLine())),
		}
		if len(item.Nodes) == 0 {
			item.Nodes = []Node{&NodeText{Pos: Pos(tkMarker.Start)}}
		}

		items = append(items, item)

		if p.peek().Type != lexer.TokenNewLine || p.peekHeadAt(p.index+1).Type != marker {
			break
		}
		p.take()
	}

	if marker == lexer.TokenUnorderedListMarker {
		return []Node{&NodeUnorderedList{
			Pos:   Pos(first.Start),
			Nodes: items,
		}}
	}

	// Numbers too large for int are capped
	start, err := strconv.Atoi(first.Value)
	if errors.Is(err, strconv.ErrRange) {
		start = math.MaxInt
	} else if err != nil {
		start = 1
	}

	return []Node{&NodeOrderedList{
		Pos:   Pos(first.Start),
		Start: start,
		Nodes: items,
	}}
}

func (p *parser) parseCodeBlock() []Node {
	tkStart := p.take()

	block := NodeCodeblock{
		Pos:      Pos(tkStart.Start),
		Language: tkStart.Value,
	}

	if p.peek().Type == lexer.TokenNewLine {
		p.take()
	}

	if p.peek().Type == lexer.TokenText {
		code := strings.TrimSuffix(p.take().Raw, "\n")
		block.Code = strings.TrimSuffix(code, "\r")
	}

	if p.peek().Type != lexer.TokenCodeBlockEnd {
		p.addErrorAt(ErrUnterminatedCodeblock, tkStart.Start)
		return nil
	}
	p.take()

	return []Node{&block}
}

func (p *parser) parseBlockquote() []Node {
	tkStart := p.take()

	nodes := p.parseBlocks(true)
	if len(p.errs) > 0 {
		return nil
	}

	if p.peekHead().Type != lexer.TokenBlockquoteEnd {
		p.addErrorAt(ErrUnterminatedBlockquote, tkStart.Start)
		return nil
	}
	p.take()

	if len(nodes) == 0 {
		return nil
	}

	return []Node{&NodeBlockquote{
		Pos:   Pos(tkStart.Start),
		Nodes: nodes,
	}}
}

// parseImage reads an image line. Without a closing parenthesis the line is kept as a
// paragraph, and anything after the closing parenthesis becomes a paragraph of its own.
func (p *parser) parseImage() []Node {
	line := p.takeLine()
	tkImage := &line[0]

	end := closingParen(line[1:])
	if end < 0 {
		return paragraphOf(line)
	}

	var alt strings.Builder
	for _, tk := range line[1 : end+1] {
		alt.WriteString(tk.Raw)
	}

	nodes := []Node{&NodeImage{
		Pos: Pos(tkImage.Start),
		Src: tkImage.Value,
		Alt: strings.TrimSpace(alt.String()),
	}}

	return append(nodes, paragraphOf(line[end+2:])...)
}

func paragraphOf(tokens []lexer.Token) []Node {
	nodes := trimLeadingSpace(parseInline(tokens))
	if len(nodes) == 0 {
		return nil
	}

	return []Node{&NodeParagraph{
		Pos:   Pos(tokens[0].Start),
		Nodes: nodes,
	}}
}

// closingParen returns the index of the parenthesis closing an already opened group.
func closingParen(tokens []lexer.Token) int {
	depth := 0

	for i, tk := range tokens {
		switch tk.Type {
		case lexer.TokenParenOpen, lexer.TokenSidenote, lexer.TokenMarginnote, lexer.TokenLink:
			depth++

		case lexer.TokenParenClose:
			if depth == 0 {
				return i
			}
			depth--
		}
	}

	return -1
}

func isBlank(tk *lexer.Token) bool {
	switch tk.Type {
	case lexer.TokenWhitespace:
		return true
	case lexer.TokenText:
		return strings.TrimSpace(tk.Raw) == ""
	}

	return false
}
