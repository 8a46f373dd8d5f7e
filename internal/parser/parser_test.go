package parser

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/pipe01/civmark/internal/lexer"
	. "github.com/pipe01/civmark/internal/parser/ast"
)

type TestFile struct {
	Nodes []Node
	T     *testing.T
}

func (t *TestFile) OnlyNode() TestNode {
	if len(t.Nodes) != 1 {
		t.T.Fatalf("expected 1 node, got %d", len(t.Nodes))
	}

	return TestNode{
		Node: t.Nodes[0],
		T:    t.T,
	}
}

func (t *TestFile) NodeAt(idx int) TestNode {
	if len(t.Nodes) <= idx {
		t.T.Fatalf("expected at least %d nodes, got %d", idx+1, len(t.Nodes))
	}

	return TestNode{
		Node: t.Nodes[idx],
		T:    t.T,
	}
}

type TestNode struct {
	Node
	T *testing.T
}

func (t TestNode) Run(fn interface{}) {
	fnType := reflect.TypeOf(fn)
	if fnType.Kind() != reflect.Func || fnType.NumIn() != 1 {
		panic("invalid function")
	}

	wantNodeType := fnType.In(0)
	actualNodeType := reflect.TypeOf(t.Node)

	if !actualNodeType.AssignableTo(wantNodeType) {
		t.T.Fatalf("expected node type %q, found %q", wantNodeType, actualNodeType)
	}

	reflect.ValueOf(fn).Call([]reflect.Value{reflect.ValueOf(t.Node)})
}

// Child returns the idx-th child of a container node.
func (t TestNode) Child(idx int) TestNode {
	c, ok := t.Node.(Container)
	if !ok {
		t.T.Fatalf("node %T has no children", t.Node)
	}

	f := TestFile{Nodes: c.Children(), T: t.T}
	return f.NodeAt(idx)
}

func assert[T comparable](t *testing.T, expected, got T, msg string) {
	if got != expected {
		t.Fatalf("%s: expected %v, got %v", msg, expected, got)
	}
}

func assertText(t *testing.T, n TestNode, want string) {
	n.Run(func(n *NodeText) {
		assert(t, want, n.Text, "text")
	})
}

func TestParser(t *testing.T) {
	type testCase struct {
		name      string
		input     string
		expectErr error
		verify    func(f *TestFile) error
	}

	cases := []testCase{
		{
			name:  "paragraph",
			input: "hello world",
			verify: func(f *TestFile) error {
				n := f.OnlyNode()
				n.Run(func(n *NodeParagraph) {
					assert(f.T, 1, len(n.Nodes), "children")
				})
				assertText(f.T, n.Child(0), "hello world")
				return nil
			},
		},
		{
			name:  "one paragraph per line",
			input: "a\nb\n\n  c",
			verify: func(f *TestFile) error {
				assert(f.T, 3, len(f.Nodes), "nodes")
				assertText(f.T, f.NodeAt(2).Child(0), "c")
				assert(f.T, 2, f.Nodes[2].Position().Column, "column")
				return nil
			},
		},
		{
			name:  "strong next to literal asterisks",
			input: "**bold** and *plain*",
			verify: func(f *TestFile) error {
				p := f.OnlyNode()
				p.Child(0).Run(func(n *NodeStrong) {
					assert(f.T, 1, len(n.Nodes), "strong children")
				})
				assertText(f.T, p.Child(0).Child(0), "bold")
				assertText(f.T, p.Child(1), " and *plain*")
				return nil
			},
		},
		{
			name:  "unclosed span is text",
			input: "**unclosed",
			verify: func(f *TestFile) error {
				assertText(f.T, f.OnlyNode().Child(0), "**unclosed")
				return nil
			},
		},
		{
			name:  "empty span is text",
			input: "****",
			verify: func(f *TestFile) error {
				assertText(f.T, f.OnlyNode().Child(0), "****")
				return nil
			},
		},
		{
			name:  "nested spans",
			input: "**a __b__ c**",
			verify: func(f *TestFile) error {
				strong := f.OnlyNode().Child(0)
				assertText(f.T, strong.Child(0), "a ")
				strong.Child(1).Run(func(n *NodeUnderlined) {})
				assertText(f.T, strong.Child(1).Child(0), "b")
				assertText(f.T, strong.Child(2), " c")
				return nil
			},
		},
		{
			name:  "crossing spans don't nest",
			input: "**a __b** c__",
			verify: func(f *TestFile) error {
				p := f.OnlyNode()
				p.Child(0).Run(func(n *NodeStrong) {
					assert(f.T, 1, len(n.Nodes), "strong children")
				})
				assertText(f.T, p.Child(0).Child(0), "a __b")
				assertText(f.T, p.Child(1), " c__")
				return nil
			},
		},
		{
			name:  "quotation and highlight",
			input: `"q" ^^h^^`,
			verify: func(f *TestFile) error {
				p := f.OnlyNode()
				p.Child(0).Run(func(n *NodeQuotation) {})
				p.Child(2).Run(func(n *NodeHighlight) {})
				return nil
			},
		},
		{
			name:  "sidenote keeps balanced parens",
			input: ":side(a (b) c)",
			verify: func(f *TestFile) error {
				n := f.OnlyNode().Child(0)
				n.Run(func(n *NodeSidenote) {})
				assertText(f.T, n.Child(0), "a (b) c")
				return nil
			},
		},
		{
			name:  "span closed by enclosing paren",
			input: ":side(**a) b**",
			verify: func(f *TestFile) error {
				p := f.OnlyNode()
				p.Child(0).Run(func(n *NodeSidenote) {})
				assertText(f.T, p.Child(0).Child(0), "**a")
				assertText(f.T, p.Child(1), " b**")
				return nil
			},
		},
		{
			name:  "marginnote",
			input: "x:margin( note)",
			verify: func(f *TestFile) error {
				p := f.OnlyNode()
				assertText(f.T, p.Child(0), "x")
				p.Child(1).Run(func(n *NodeMarginnote) {})
				assertText(f.T, p.Child(1).Child(0), "note")
				return nil
			},
		},
		{
			name:  "link",
			input: ":link(https://x.org the **site**)",
			verify: func(f *TestFile) error {
				n := f.OnlyNode().Child(0)
				n.Run(func(n *NodeLink) {
					assert(f.T, "https://x.org", n.URL, "url")
					assert(f.T, 2, len(n.Nodes), "children")
				})
				assertText(f.T, n.Child(0), "the ")
				return nil
			},
		},
		{
			name:  "link without text shows url",
			input: ":link(https://x.org)",
			verify: func(f *TestFile) error {
				n := f.OnlyNode().Child(0)
				n.Run(func(n *NodeLink) {})
				assertText(f.T, n.Child(0), "https://x.org")
				return nil
			},
		},
		{
			name:  "unclosed sidenote is text",
			input: ":side(abc",
			verify: func(f *TestFile) error {
				assertText(f.T, f.OnlyNode().Child(0), ":side(abc")
				return nil
			},
		},
		{
			name:  "unordered list",
			input: "- a\n- **b**",
			verify: func(f *TestFile) error {
				n := f.OnlyNode()
				n.Run(func(n *NodeUnorderedList) {
					assert(f.T, 2, len(n.Nodes), "items")
				})
				n.Child(0).Run(func(n *NodeListItem) {})
				assertText(f.T, n.Child(0).Child(0), "a")
				n.Child(1).Child(0).Run(func(n *NodeStrong) {})
				return nil
			},
		},
		{
			name:  "ordered list keeps start",
			input: "3. x\n4. y\n5. z",
			verify: func(f *TestFile) error {
				f.OnlyNode().Run(func(n *NodeOrderedList) {
					assert(f.T, 3, n.Start, "start")
					assert(f.T, 3, len(n.Nodes), "items")
				})
				return nil
			},
		},
		{
			name:  "ordered list start too large for int",
			input: "99999999999999999999999. x",
			verify: func(f *TestFile) error {
				f.OnlyNode().Run(func(n *NodeOrderedList) {
					assert(f.T, math.MaxInt, n.Start, "start")
				})
				return nil
			},
		},
		{
			name:  "crlf lines",
			input: "- a\r\n- b\r\n\r\nc\r\n",
			verify: func(f *TestFile) error {
				assert(f.T, 2, len(f.Nodes), "nodes")
				assertText(f.T, f.NodeAt(0).Child(0).Child(0), "a")
				assertText(f.T, f.NodeAt(0).Child(1).Child(0), "b")
				assertText(f.T, f.NodeAt(1).Child(0), "c")
				return nil
			},
		},
		{
			name:  "different list kinds are different lists",
			input: "- a\n1. b",
			verify: func(f *TestFile) error {
				f.NodeAt(0).Run(func(n *NodeUnorderedList) {})
				f.NodeAt(1).Run(func(n *NodeOrderedList) {
					assert(f.T, 1, n.Start, "start")
				})
				return nil
			},
		},
		{
			name:  "codeblock is opaque",
			input: "```go\n**not bold**\n:side(x)\n```",
			verify: func(f *TestFile) error {
				f.OnlyNode().Run(func(n *NodeCodeblock) {
					assert(f.T, "go", n.Language, "language")
					assert(f.T, "**not bold**\n:side(x)", n.Code, "code")
				})
				return nil
			},
		},
		{
			name:      "unterminated codeblock",
			input:     "```\ncode",
			expectErr: ErrUnterminatedCodeblock,
		},
		{
			name:  "blockquote",
			input: ">>>\nquote **b**\n\nsecond\n<<<",
			verify: func(f *TestFile) error {
				n := f.OnlyNode()
				n.Run(func(n *NodeBlockquote) {
					assert(f.T, 2, len(n.Nodes), "blocks")
				})
				assertText(f.T, n.Child(0).Child(0), "quote ")
				n.Child(0).Child(1).Run(func(n *NodeStrong) {})
				return nil
			},
		},
		{
			name:  "nested blockquote",
			input: ">>>\n>>>\ninner\n<<<\n<<<",
			verify: func(f *TestFile) error {
				f.OnlyNode().Child(0).Run(func(n *NodeBlockquote) {})
				return nil
			},
		},
		{
			name:  "empty blockquote is dropped",
			input: ">>>\n\n<<<",
			verify: func(f *TestFile) error {
				assert(f.T, 0, len(f.Nodes), "nodes")
				return nil
			},
		},
		{
			name:      "unterminated blockquote",
			input:     ">>>\nquote",
			expectErr: ErrUnterminatedBlockquote,
		},
		{
			name:  "stray blockquote end is text",
			input: "<<< text",
			verify: func(f *TestFile) error {
				assertText(f.T, f.OnlyNode().Child(0), "<<< text")
				return nil
			},
		},
		{
			name:  "rule",
			input: "a\n---\nb",
			verify: func(f *TestFile) error {
				f.NodeAt(1).Run(func(n *NodeHorizontalRule) {})
				return nil
			},
		},
		{
			name:  "image",
			input: ":img(pic.png A cat)",
			verify: func(f *TestFile) error {
				f.OnlyNode().Run(func(n *NodeImage) {
					assert(f.T, "pic.png", n.Src, "src")
					assert(f.T, "A cat", n.Alt, "alt")
				})
				return nil
			},
		},
		{
			name:  "image followed by text",
			input: ":img(pic.png) caption",
			verify: func(f *TestFile) error {
				f.NodeAt(0).Run(func(n *NodeImage) {
					assert(f.T, "", n.Alt, "alt")
				})
				assertText(f.T, f.NodeAt(1).Child(0), "caption")
				return nil
			},
		},
		{
			name:  "unclosed image is a paragraph",
			input: ":img(pic.png",
			verify: func(f *TestFile) error {
				assertText(f.T, f.OnlyNode().Child(0), ":img(pic.png")
				return nil
			},
		},
		{
			name:  "blank input",
			input: "  \n\n\t\n",
			verify: func(f *TestFile) error {
				assert(f.T, 0, len(f.Nodes), "nodes")
				return nil
			},
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			tks, err := lexer.Tokenize(c.input, nil)
			if err != nil {
				t.Fatalf("failed to tokenize input: %s", err)
			}

			rest, nodes, err := Parse(tks)
			if c.expectErr != nil {
				var perr *ParserError
				if !errors.As(err, &perr) || !errors.Is(err, c.expectErr) {
					t.Fatalf("expected %q, got %v", c.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to parse tokens: %s", err)
			}

			assert(t, 1, len(rest), "remaining tokens")
			assert(t, lexer.TokenEOF, rest[0].Type, "remaining token")

			tf := TestFile{
				Nodes: nodes,
				T:     t,
			}

			err = c.verify(&tf)
			if err != nil {
				t.Fatalf("failed to verify result: %s", err)
			}
		})
	}
}

func TestParseRequiresEOF(t *testing.T) {
	cases := [][]lexer.Token{
		nil,
		{{Type: lexer.TokenText, Raw: "a"}},
	}

	for _, tks := range cases {
		_, _, err := Parse(tks)
		if !errors.Is(err, ErrLastTokenEOF) {
			t.Fatalf("expected %q, got %v", ErrLastTokenEOF, err)
		}
	}
}

func TestParseAll(t *testing.T) {
	tks := []lexer.Token{
		{Type: lexer.TokenText, Raw: "a"},
		{Type: lexer.TokenEOF, Start: lexer.Location{Column: 1}},
		{Type: lexer.TokenText, Raw: "b"},
		{Type: lexer.TokenEOF},
	}

	rest, nodes, err := Parse(tks)
	if err != nil {
		t.Fatalf("failed to parse tokens: %s", err)
	}
	assert(t, 3, len(rest), "remaining tokens")
	assert(t, 1, len(nodes), "nodes")

	_, err = ParseAll(tks)

	var perr *ParserError
	if !errors.As(err, &perr) || !errors.Is(err, ErrExpectedToEatAll) {
		t.Fatalf("expected %q, got %v", ErrExpectedToEatAll, err)
	}
	assert(t, 1, perr.At().Column, "error column")

	nodes, err = ParseAll(tks[2:])
	if err != nil {
		t.Fatalf("failed to parse tokens: %s", err)
	}
	assert(t, 1, len(nodes), "nodes")
}
