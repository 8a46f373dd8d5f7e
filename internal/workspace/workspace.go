package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pipe01/civmark/internal/compiler"
	"github.com/pipe01/civmark/internal/grammar"
	"github.com/pipe01/civmark/internal/lexer"
	"github.com/pipe01/civmark/internal/parser"
	"github.com/pipe01/civmark/internal/parser/ast"
	"github.com/pipe01/civmark/internal/splitter"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("civmark.workspace")

// Note is a markup file that has been lexed and parsed.
type Note struct {
	Name   string
	Path   string
	Tokens []lexer.Token
	Nodes  []ast.Node
}

// Blocks returns the note cut into its top level blocks.
func (n *Note) Blocks() []string {
	return splitter.SplitTokens(n.Tokens)
}

func (n *Note) HTML() (string, error) {
	return compiler.Compile(n.Nodes)
}

func (n *Note) Elements(noteID int) ([]compiler.Element, error) {
	return compiler.CompileToStruct(n.Nodes, noteID)
}

// Workspace loads notes relative to a root folder and caches them until invalidated.
// It is safe for concurrent use.
type Workspace struct {
	rootPath string
	grammar  *grammar.Grammar

	mu          sync.Mutex
	parsedFiles map[string]*Note
}

func New(rootPath string, g *grammar.Grammar) *Workspace {
	if g == nil {
		g = grammar.Default()
	}

	return &Workspace{
		rootPath:    rootPath,
		grammar:     g,
		parsedFiles: make(map[string]*Note),
	}
}

func (w *Workspace) fullPath(relPath string) string {
	if filepath.IsAbs(relPath) {
		return filepath.Clean(relPath)
	}

	return filepath.Join(w.rootPath, relPath)
}

func (w *Workspace) Load(relPath string) (*Note, error) {
	fullPath := w.fullPath(relPath)

	w.mu.Lock()
	note, ok := w.parsedFiles[fullPath]
	w.mu.Unlock()

	if ok {
		return note, nil
	}

	bytes, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return w.LoadWithContents(relPath, bytes)
}

// LoadWithContents parses contents as the note at relPath, replacing any cached version.
// Editors use it for buffers that haven't been saved yet.
func (w *Workspace) LoadWithContents(relPath string, contents []byte) (*Note, error) {
	fullPath := w.fullPath(relPath)

	tks, err := lexer.New(contents, relPath, w.grammar).Collect()
	if err != nil {
		return nil, fmt.Errorf("lex file: %w", err)
	}

	nodes, err := parser.ParseAll(tks)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}

	fname := filepath.Base(fullPath)
	note := &Note{
		Name:   strings.TrimSuffix(fname, filepath.Ext(fname)),
		Path:   fullPath,
		Tokens: tks,
		Nodes:  nodes,
	}

	count := 0
	ast.Walk(nodes, func(ast.Node) bool {
		count++
		return true
	})
	log.Debugf("parsed %q into %d tokens and %d nodes", relPath, len(tks), count)

	w.mu.Lock()
	w.parsedFiles[fullPath] = note
	w.mu.Unlock()

	return note, nil
}

// Invalidate drops the cached note at relPath so the next Load reads it again.
func (w *Workspace) Invalidate(relPath string) {
	w.mu.Lock()
	delete(w.parsedFiles, w.fullPath(relPath))
	w.mu.Unlock()
}
