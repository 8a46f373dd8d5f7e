package splitter

import (
	"strings"

	"github.com/pipe01/civmark/internal/grammar"
	"github.com/pipe01/civmark/internal/lexer"
)

// Split cuts text into its top level blocks, each returned exactly as written.
func Split(text string, g *grammar.Grammar) ([]string, error) {
	tokens, err := lexer.Tokenize(text, g)
	if err != nil {
		return nil, err
	}

	blocks := SplitTokens(tokens)
	if len(blocks) == 0 && text != "" {
		// Only blank lines, keep them so that nothing the user typed is lost
		blocks = []string{text}
	}

	return blocks, nil
}

// SplitTokens groups tokens into blocks. Blank lines between blocks are dropped.
func SplitTokens(tokens []lexer.Token) []string {
	var blocks []string

	tokens = skipBlankLines(tokens)

	for !isDone(tokens) {
		var block string

		switch lineHead(tokens).Type {
		case lexer.TokenOrderedListMarker:
			block, tokens = joinList(tokens, lexer.TokenOrderedListMarker)

		case lexer.TokenUnorderedListMarker:
			block, tokens = joinList(tokens, lexer.TokenUnorderedListMarker)

		case lexer.TokenCodeBlockStart:
			block, tokens = joinUntil(tokens, lexer.TokenCodeBlockStart, lexer.TokenCodeBlockEnd)

		case lexer.TokenBlockquoteStart:
			block, tokens = joinUntil(tokens, lexer.TokenBlockquoteStart, lexer.TokenBlockquoteEnd)

		default:
			block, tokens = joinLine(tokens)
		}

		blocks = append(blocks, block)
		tokens = skipBlankLines(tokens)
	}

	return blocks
}

func isDone(tokens []lexer.Token) bool {
	return len(tokens) == 0 || (len(tokens) == 1 && tokens[0].Type == lexer.TokenEOF)
}

// lineHead returns the first token of the line, ignoring indentation.
func lineHead(tokens []lexer.Token) lexer.Token {
	if len(tokens) > 1 && tokens[0].Type == lexer.TokenWhitespace {
		return tokens[1]
	}
	if len(tokens) == 0 {
		return lexer.Token{Type: lexer.TokenEOF}
	}

	return tokens[0]
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

func skipBlankLines(tokens []lexer.Token) []lexer.Token {
	for {
		i := 0
		for i < len(tokens) && isBlank(&tokens[i]) {
			i++
		}

		if i < len(tokens) && tokens[i].Type == lexer.TokenNewLine {
			tokens = tokens[i+1:]
			continue
		}
		if i == len(tokens) || tokens[i].Type == lexer.TokenEOF {
			return tokens[i:]
		}

		return tokens
	}
}

func lineEnd(tokens []lexer.Token) int {
	for i, tk := range tokens {
		if tk.Type == lexer.TokenNewLine || tk.Type == lexer.TokenEOF {
			return i
		}
	}

	return len(tokens)
}

func join(tokens []lexer.Token) string {
	var b strings.Builder

	for _, tk := range tokens {
		b.WriteString(tk.Raw)
	}

	return b.String()
}

// joinLine consumes the current line up to, but not including, its line break.
func joinLine(tokens []lexer.Token) (string, []lexer.Token) {
	end := lineEnd(tokens)
	return join(tokens[:end]), tokens[end:]
}

// joinList consumes list items for as long as every next line opens an item of the
// same kind.
func joinList(tokens []lexer.Token, marker lexer.TokenType) (string, []lexer.Token) {
	end := 0

	for {
		end += lineEnd(tokens[end:])

		if end >= len(tokens) || tokens[end].Type != lexer.TokenNewLine {
			break
		}
		if lineHead(tokens[end+1:]).Type != marker {
			break
		}

		end++
	}

	return join(tokens[:end]), tokens[end:]
}

// joinUntil consumes everything through the line of the closer matching the opener at
// the start of tokens, or to the end of input if it is never closed. Text trailing the
// closer on its line is lexed mid-line, so it has to stay in the same block.
func joinUntil(tokens []lexer.Token, opener, closer lexer.TokenType) (string, []lexer.Token) {
	depth := 0

	for i, tk := range tokens {
		switch tk.Type {
		case opener:
			depth++

		case closer:
			depth--
			if depth == 0 {
				end := i + 1 + lineEnd(tokens[i+1:])
				return join(tokens[:end]), tokens[end:]
			}

		case lexer.TokenEOF:
			return join(tokens[:i]), tokens[i:]
		}
	}

	return join(tokens), nil
}
