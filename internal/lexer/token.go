package lexer

import "fmt"

type TokenType int

const (
	TokenText TokenType = iota
	TokenNewLine
	TokenWhitespace

	TokenUnorderedListMarker
	TokenOrderedListMarker
	TokenCodeBlockStart
	TokenCodeBlockEnd
	TokenBlockquoteStart
	TokenBlockquoteEnd
	TokenHorizontalRule
	TokenImage

	TokenStrong
	TokenUnderline
	TokenQuotation
	TokenHighlight
	TokenSidenote
	TokenMarginnote
	TokenLink
	TokenParenOpen
	TokenParenClose

	TokenEOF
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "Text"
	case TokenNewLine:
		return "Newline"
	case TokenWhitespace:
		return "Whitespace"

	case TokenUnorderedListMarker:
		return "Unordered list marker"
	case TokenOrderedListMarker:
		return "Ordered list marker"
	case TokenCodeBlockStart:
		return "Codeblock start"
	case TokenCodeBlockEnd:
		return "Codeblock end"
	case TokenBlockquoteStart:
		return "Blockquote start"
	case TokenBlockquoteEnd:
		return "Blockquote end"
	case TokenHorizontalRule:
		return "Horizontal rule"
	case TokenImage:
		return "Image"

	case TokenStrong:
		return "Strong"
	case TokenUnderline:
		return "Underline"
	case TokenQuotation:
		return "Quotation"
	case TokenHighlight:
		return "Highlight"
	case TokenSidenote:
		return "Sidenote"
	case TokenMarginnote:
		return "Marginnote"
	case TokenLink:
		return "Link"
	case TokenParenOpen:
		return "Parentheses open"
	case TokenParenClose:
		return "Parentheses close"

	case TokenEOF:
		return "EOF"
	}

	return "<unknown>"
}

// IsSymmetric reports whether the same token both opens and closes a span.
func (t TokenType) IsSymmetric() bool {
	switch t {
	case TokenStrong, TokenUnderline, TokenQuotation, TokenHighlight:
		return true
	}
	return false
}

// IsParenSpan reports whether the token opens a span closed by TokenParenClose.
func (t TokenType) IsParenSpan() bool {
	switch t {
	case TokenSidenote, TokenMarginnote, TokenLink:
		return true
	}
	return false
}

type Token struct {
	Type  TokenType
	Start Location

	// Raw is the exact source slice the token was lexed from
	Raw string

	// Value carries the payload of marker tokens: link URL, image source, codeblock
	// language or ordered list number.
	Value string
}

type Location struct {
	File string

	// 0-based
	Line, Column int
}

func (l *Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line+1, l.Column+1)
}
