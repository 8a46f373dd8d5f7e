package splitter

import (
	"strings"
	"testing"

	"github.com/pipe01/civmark/internal/grammar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single line",
			input: "hello world",
			want:  []string{"hello world"},
		},
		{
			name:  "blank line between paragraphs",
			input: "hello world\n\nanother line",
			want:  []string{"hello world", "another line"},
		},
		{
			name:  "consecutive lines are separate blocks",
			input: "one\ntwo",
			want:  []string{"one", "two"},
		},
		{
			name:  "header then list",
			input: "# Title\n\n- a\n- b",
			want:  []string{"# Title", "- a\n- b"},
		},
		{
			name:  "indented list",
			input: "  - a\n  - b\ntext",
			want:  []string{"  - a\n  - b", "text"},
		},
		{
			name:  "list kind change starts a new block",
			input: "- a\n1. b\n2. c",
			want:  []string{"- a", "1. b\n2. c"},
		},
		{
			name:  "codeblock kept verbatim",
			input: "intro\n```go\nx\n\n**y**\n```\nafter",
			want:  []string{"intro", "```go\nx\n\n**y**\n```", "after"},
		},
		{
			name:  "unterminated codeblock runs to the end",
			input: "```\ncode\n\nmore",
			want:  []string{"```\ncode\n\nmore"},
		},
		{
			name:  "blockquote kept whole",
			input: ">>>\na\n\nb\n<<<\n\nc",
			want:  []string{">>>\na\n\nb\n<<<", "c"},
		},
		{
			name:  "nested blockquote",
			input: ">>>\n>>>\na\n<<<\n\nb\n<<<",
			want:  []string{">>>\n>>>\na\n<<<\n\nb\n<<<"},
		},
		{
			name:  "rule and image",
			input: "---\n:img(a.png alt)",
			want:  []string{"---", ":img(a.png alt)"},
		},
		{
			name:  "text after closing fence stays in the codeblock",
			input: "```go\nx := 1\n```>>>\n\nnext",
			want:  []string{"```go\nx := 1\n```>>>", "next"},
		},
		{
			name:  "list marker after closing fence",
			input: "```\nx\n```- item\n- real",
			want:  []string{"```\nx\n```- item", "- real"},
		},
		{
			name:  "text after blockquote end stays in the blockquote",
			input: ">>>\nq\n<<<```\nnext",
			want:  []string{">>>\nq\n<<<```", "next"},
		},
		{
			name:  "crlf line breaks",
			input: "a\r\n\r\n- b\r\n- c\r\nd",
			want:  []string{"a", "- b\r\n- c", "d"},
		},
		{
			name:  "whitespace only",
			input: "  \n\n",
			want:  []string{"  \n\n"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			blocks, err := Split(c.input, nil)
			require.NoError(t, err)

			assert.Equal(t, c.want, blocks)
		})
	}
}

func TestSplitCoversInput(t *testing.T) {
	input := "Intro :side(note)\n\n- a\n- b\n\n```\ncode\n```\n>>>\nq\n<<<\n---\nend"

	blocks, err := Split(input, nil)
	require.NoError(t, err)
	require.Len(t, blocks, 6)

	// Blocks appear in order and only blank lines are left between them
	rest := input
	for _, b := range blocks {
		idx := strings.Index(rest, b)
		require.GreaterOrEqual(t, idx, 0, "block %q not found", b)

		assert.Empty(t, strings.TrimSpace(rest[:idx]))
		rest = rest[idx+len(b):]
	}
	assert.Empty(t, strings.TrimSpace(rest))
}

func TestSplitCustomGrammar(t *testing.T) {
	g := grammar.Default()
	g.CodeFence = "~~~"

	blocks, err := Split("~~~\na\n\nb\n~~~\n\nc", g)
	require.NoError(t, err)

	assert.Equal(t, []string{"~~~\na\n\nb\n~~~", "c"}, blocks)
}

func TestSplitInvalidUTF8(t *testing.T) {
	_, err := Split("a\xff", nil)
	assert.Error(t, err)
}
