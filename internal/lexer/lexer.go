package lexer

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pipe01/civmark/internal/grammar"
)

const debugPrint = false

type LexerError struct {
	Inner    error
	Location Location
}

func (e *LexerError) Unwrap() error {
	return e.Inner
}

func (e *LexerError) Error() string {
	return fmt.Sprintf("%s at %s", e.Inner, &e.Location)
}

func (e *LexerError) At() Location {
	return e.Location
}

var ErrInvalidUTF8 = errors.New("invalid UTF-8 sequence")

type stateFunc func() stateFunc

type state struct {
	tokenStart int
	strStart   Location

	byteIndex int
	line, col int
}

type delimiter struct {
	text string
	typ  TokenType
}

type Lexer struct {
	filename string
	file     []byte

	grammar *grammar.Grammar
	inline  []delimiter

	tokens []Token
	done   bool

	state

	err *LexerError
}

func New(file []byte, fileName string, g *grammar.Grammar) *Lexer {
	if g == nil {
		g = grammar.Default()
	}

	inline := []delimiter{
		{g.Strong, TokenStrong},
		{g.Underline, TokenUnderline},
		{g.Quotation, TokenQuotation},
		{g.Highlight, TokenHighlight},
		{g.Sidenote, TokenSidenote},
		{g.Marginnote, TokenMarginnote},
		{g.Link, TokenLink},
		{g.ParenOpen, TokenParenOpen},
		{g.ParenClose, TokenParenClose},
	}

	// Longest delimiter wins, so ":side(" is matched before "("
	sort.SliceStable(inline, func(i, j int) bool {
		return len(inline[i].text) > len(inline[j].text)
	})

	l := &Lexer{
		filename: fileName,
		file:     file,
		grammar:  g,
		inline:   inline,
	}
	l.discard()

	return l
}

// Tokenize lexes text in one go.
func Tokenize(text string, g *grammar.Grammar) ([]Token, error) {
	return New([]byte(text), "", g).Collect()
}

// Collect runs the lexer to completion. The returned tokens always end with TokenEOF.
func (l *Lexer) Collect() ([]Token, error) {
	if !l.done {
		l.done = true

		state := l.lexLineStart
		for state != nil {
			state = state()

			if l.err != nil {
				break
			}
		}

		if l.err == nil {
			l.tokens = append(l.tokens, Token{
				Type: TokenEOF,
				Start: Location{
					File:   l.filename,
					Line:   l.line,
					Column: l.col,
				},
			})
		}
	}

	if l.err != nil {
		return nil, l.err
	}

	return l.tokens, nil
}

func (l *Lexer) location() Location {
	return Location{
		File:   l.filename,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *Lexer) atEOF() bool {
	return l.byteIndex >= len(l.file)
}

// take consumes one rune. An invalid UTF-8 sequence stops the lexer as if it had reached
// the end of input, with l.err set.
func (l *Lexer) take() (r rune, eof bool) {
	if l.atEOF() {
		return 0, true
	}

	r, size := utf8.DecodeRune(l.file[l.byteIndex:])
	if r == utf8.RuneError && size <= 1 {
		l.err = &LexerError{
			Inner:    ErrInvalidUTF8,
			Location: l.location(),
		}
		return 0, true
	}

	l.col++
	l.byteIndex += size

	if r == '\n' {
		l.line++
		l.col = 0
	}

	if debugPrint {
		fmt.Printf("take %q\n", r)
	}

	return r, false
}

func (l *Lexer) peek() (r rune, eof bool) {
	if l.atEOF() {
		return 0, true
	}

	r, _ = utf8.DecodeRune(l.file[l.byteIndex:])
	return
}

func (l *Lexer) hasPrefix(s string) bool {
	return bytes.HasPrefix(l.file[l.byteIndex:], []byte(s))
}

func (l *Lexer) takeUntilByteIndex(n int) (eof bool) {
	for l.byteIndex < n {
		_, eof = l.take()
		if eof {
			return true
		}
	}

	return false
}

func (l *Lexer) takeString(s string) (eof bool) {
	return l.takeUntilByteIndex(l.byteIndex + len(s))
}

func (l *Lexer) takeWhitespace() (took bool) {
	for {
		r, eof := l.peek()
		if eof || !isWhitespace(r) {
			return took
		}

		l.take()
		took = true
	}
}

// takeNewLine consumes a line break, which is either "\n" or "\r\n".
func (l *Lexer) takeNewLine() {
	if l.hasPrefix("\r") {
		l.take()
	}
	l.take()
}

// takeUntilNewline consumes the rest of the line, stopping before its line break.
func (l *Lexer) takeUntilNewline() {
	for {
		r, eof := l.peek()
		if eof || r == '\n' || l.hasPrefix("\r\n") {
			return
		}

		if _, eof := l.take(); eof {
			return
		}
	}
}

// takeURL consumes a link or image target: everything up to whitespace or the closing
// parenthesis that isn't balanced by an opening one inside the target itself.
func (l *Lexer) takeURL() {
	depth := 0

	for {
		r, eof := l.peek()
		if eof || isWhitespace(r) || r == '\n' || r == '\r' {
			return
		}

		switch {
		case l.hasPrefix(l.grammar.ParenOpen):
			depth++
			l.takeString(l.grammar.ParenOpen)
			continue

		case l.hasPrefix(l.grammar.ParenClose):
			if depth == 0 {
				return
			}
			depth--
			l.takeString(l.grammar.ParenClose)
			continue
		}

		if _, eof := l.take(); eof {
			return
		}
	}
}

func (l *Lexer) emit(typ TokenType) {
	l.emitValue(typ, "")
}

func (l *Lexer) emitValue(typ TokenType, value string) {
	l.tokens = append(l.tokens, Token{
		Type:  typ,
		Start: l.strStart,
		Raw:   string(l.file[l.tokenStart:l.byteIndex]),
		Value: value,
	})

	l.discard()
}

func (l *Lexer) emitText() {
	if !l.isEmpty() {
		l.emit(TokenText)
	}
}

func (l *Lexer) discard() {
	l.tokenStart = l.byteIndex
	l.strStart = l.location()
}

func (l *Lexer) isEmpty() bool {
	return l.tokenStart == l.byteIndex
}

func (l *Lexer) matchDelimiter() (delimiter, bool) {
	for _, d := range l.inline {
		if l.hasPrefix(d.text) {
			return d, true
		}
	}

	return delimiter{}, false
}

// isRuleLine reports whether the current line holds nothing but the rule marker.
func (l *Lexer) isRuleLine() bool {
	if !l.hasPrefix(l.grammar.Rule) {
		return false
	}

	rest := l.file[l.byteIndex+len(l.grammar.Rule):]
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}

	return len(bytes.Trim(rest, " \t\r")) == 0
}

func (l *Lexer) lexLineStart() stateFunc {
	if l.atEOF() {
		return nil
	}

	g := l.grammar

	switch {
	case l.hasPrefix(g.CodeFence):
		return l.lexCodeBlockStart

	case l.hasPrefix(g.BlockquoteStart):
		l.takeString(g.BlockquoteStart)
		l.emit(TokenBlockquoteStart)
		return l.lexInline

	case l.hasPrefix(g.BlockquoteEnd):
		l.takeString(g.BlockquoteEnd)
		l.emit(TokenBlockquoteEnd)
		return l.lexInline

	case l.isRuleLine():
		l.takeString(g.Rule)
		l.takeUntilNewline()
		l.emit(TokenHorizontalRule)
		return l.lexInline

	case l.hasPrefix(g.Image):
		l.takeString(g.Image)
		start := l.byteIndex
		l.takeURL()
		l.emitValue(TokenImage, string(l.file[start:l.byteIndex]))
		return l.lexInline
	}

	if l.takeWhitespace() {
		l.emit(TokenWhitespace)
	}

	l.lexListMarker()

	return l.lexInline
}

// lexListMarker emits a list marker if the line continues with one. Markers need a
// trailing blank so that "-5" or "2.5" in prose stay text.
func (l *Lexer) lexListMarker() {
	g := l.grammar
	rest := l.file[l.byteIndex:]

	followedByBlank := func(n int) bool {
		return len(rest) > n && isWhitespace(rune(rest[n]))
	}

	if bytes.HasPrefix(rest, []byte(g.UnorderedMarker)) && followedByBlank(len(g.UnorderedMarker)) {
		l.takeString(g.UnorderedMarker)
		l.take()
		l.emit(TokenUnorderedListMarker)
		return
	}

	digits := 0
	for digits < len(rest) && isASCIIDigit(rune(rest[digits])) {
		digits++
	}
	if digits == 0 {
		return
	}

	if bytes.HasPrefix(rest[digits:], []byte(g.OrderedSeparator)) && followedByBlank(digits+len(g.OrderedSeparator)) {
		number := string(rest[:digits])

		l.takeUntilByteIndex(l.byteIndex + digits + len(g.OrderedSeparator))
		l.take()
		l.emitValue(TokenOrderedListMarker, number)
	}
}

func (l *Lexer) lexCodeBlockStart() stateFunc {
	fence := l.grammar.CodeFence

	l.takeString(fence)
	l.takeUntilNewline()

	lang := strings.TrimSpace(string(l.file[l.tokenStart+len(fence) : l.byteIndex]))
	l.emitValue(TokenCodeBlockStart, lang)

	if l.err != nil || l.atEOF() {
		return nil
	}
	l.takeNewLine()
	l.emit(TokenNewLine)

	return l.lexCodeBody
}

// lexCodeBody collects whole lines verbatim until a line starting with the fence.
func (l *Lexer) lexCodeBody() stateFunc {
	fence := l.grammar.CodeFence

	for {
		if l.atEOF() {
			l.emitText()
			return nil
		}

		if l.hasPrefix(fence) {
			l.emitText()

			l.takeString(fence)
			l.takeWhitespace()
			l.emit(TokenCodeBlockEnd)

			return l.lexInline
		}

		l.takeUntilNewline()
		if l.err != nil {
			return nil
		}
		if !l.atEOF() {
			l.takeNewLine()
		}
	}
}

func (l *Lexer) lexInline() stateFunc {
	for {
		r, eof := l.peek()
		if eof {
			l.emitText()
			return nil
		}

		if r == '\n' || l.hasPrefix("\r\n") {
			l.emitText()
			l.takeNewLine()
			l.emit(TokenNewLine)
			return l.lexLineStart
		}

		if d, ok := l.matchDelimiter(); ok {
			l.emitText()
			l.takeString(d.text)

			if d.typ == TokenLink {
				start := l.byteIndex
				l.takeURL()
				l.emitValue(TokenLink, string(l.file[start:l.byteIndex]))
			} else {
				l.emit(d.typ)
			}
			continue
		}

		if _, eof := l.take(); eof {
			return nil
		}
	}
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t'
}
