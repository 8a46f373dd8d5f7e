package errors

import (
	goerrors "errors"

	"github.com/pipe01/civmark/internal/compiler"
	"github.com/pipe01/civmark/internal/lexer"
	"github.com/pipe01/civmark/internal/parser"
)

// SituatedErr is implemented by errors that point at a place in the markup.
type SituatedErr interface {
	Unwrap() error
	At() lexer.Location
}

type Kind int

const (
	KindUnknown Kind = iota
	KindLexer
	KindParser
	KindParserExpectedToEatAll
	KindFmt
)

func (k Kind) String() string {
	switch k {
	case KindLexer:
		return "Lexer"
	case KindParser:
		return "Parser"
	case KindParserExpectedToEatAll:
		return "ParserExpectedToEatAll"
	case KindFmt:
		return "FmtError"
	}

	return "Unknown"
}

// KindOf tells which pipeline stage err comes from.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var lexErr *lexer.LexerError
	var parseErr *parser.ParserError
	var fmtErr *compiler.FmtError

	switch {
	case goerrors.Is(err, parser.ErrExpectedToEatAll):
		return KindParserExpectedToEatAll
	case goerrors.As(err, &lexErr):
		return KindLexer
	case goerrors.As(err, &parseErr), goerrors.Is(err, parser.ErrLastTokenEOF):
		return KindParser
	case goerrors.As(err, &fmtErr):
		return KindFmt
	}

	return KindUnknown
}

// Position returns where in the markup err happened, if it is known.
func Position(err error) (lexer.Location, bool) {
	var poserr SituatedErr

	if goerrors.As(err, &poserr) {
		return poserr.At(), true
	}

	return lexer.Location{}, false
}
