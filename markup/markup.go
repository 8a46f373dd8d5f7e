// Package markup is the entry point to the note markup pipeline: it tokenizes, splits,
// parses and compiles note text. Every function is pure, so calls may run concurrently.
package markup

import (
	"github.com/pipe01/civmark/internal/compiler"
	"github.com/pipe01/civmark/internal/grammar"
	"github.com/pipe01/civmark/internal/lexer"
	"github.com/pipe01/civmark/internal/parser"
	"github.com/pipe01/civmark/internal/parser/ast"
	"github.com/pipe01/civmark/internal/splitter"
)

type (
	Token     = lexer.Token
	TokenType = lexer.TokenType
	Location  = lexer.Location
	Node      = ast.Node
	Element   = compiler.Element
	Attribute = compiler.Attribute
	Grammar   = grammar.Grammar
)

// DefaultGrammar returns a fresh copy of the built-in delimiter table.
func DefaultGrammar() *Grammar {
	return grammar.Default()
}

// LoadGrammar reads a YAML or TOML delimiter table.
func LoadGrammar(path string) (*Grammar, error) {
	return grammar.Load(path)
}

// Pipeline runs the markup stages with a fixed grammar.
type Pipeline struct {
	grammar *grammar.Grammar
}

// New returns a pipeline using g, or the default grammar if g is nil.
func New(g *Grammar) *Pipeline {
	if g == nil {
		g = grammar.Default()
	}

	return &Pipeline{
		grammar: g,
	}
}

func (p *Pipeline) Tokenize(text string) ([]Token, error) {
	return lexer.Tokenize(text, p.grammar)
}

func (p *Pipeline) Split(text string) ([]string, error) {
	return splitter.Split(text, p.grammar)
}

// Nodes tokenizes and parses text, requiring the parser to consume all of it.
func (p *Pipeline) Nodes(text string) ([]Node, error) {
	tokens, err := p.Tokenize(text)
	if err != nil {
		return nil, err
	}

	return parser.ParseAll(tokens)
}

// Build renders text as HTML.
func (p *Pipeline) Build(text string) (string, error) {
	nodes, err := p.Nodes(text)
	if err != nil {
		return "", err
	}

	return compiler.Compile(nodes)
}

// AsStruct renders text as an element tree whose generated ids are scoped by noteID.
func (p *Pipeline) AsStruct(text string, noteID int) ([]Element, error) {
	nodes, err := p.Nodes(text)
	if err != nil {
		return nil, err
	}

	return compiler.CompileToStruct(nodes, noteID)
}

var defaultPipeline = New(nil)

func Tokenize(text string) ([]Token, error) {
	return defaultPipeline.Tokenize(text)
}

func Split(text string) ([]string, error) {
	return defaultPipeline.Split(text)
}

func Parse(tokens []Token) (remaining []Token, nodes []Node, err error) {
	return parser.Parse(tokens)
}

func Compile(nodes []Node) (string, error) {
	return compiler.Compile(nodes)
}

func CompileToStruct(nodes []Node, noteID int) ([]Element, error) {
	return compiler.CompileToStruct(nodes, noteID)
}

// Build is Compile(Parse(Tokenize(text))).
func Build(text string) (string, error) {
	return defaultPipeline.Build(text)
}

// SplitMarkup cuts note text into the blocks that are stored as separate notes.
func SplitMarkup(text string) ([]string, error) {
	return defaultPipeline.Split(text)
}

// MarkupAsStruct is CompileToStruct(Parse(Tokenize(text)), noteID).
func MarkupAsStruct(text string, noteID int) ([]Element, error) {
	return defaultPipeline.AsStruct(text, noteID)
}
