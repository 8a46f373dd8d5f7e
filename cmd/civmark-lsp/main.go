package main

import (
	goerrors "errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"fortio.org/safecast"
	"github.com/pipe01/civmark/errors"
	"github.com/pipe01/civmark/internal/grammar"
	"github.com/pipe01/civmark/internal/lexer"
	"github.com/pipe01/civmark/internal/workspace"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "civmark"

var version string = "0.1.0"
var handler protocol.Handler

var log = commonlog.GetLogger("civmark.lsp")

var (
	documentsMu sync.Mutex
	documents   = map[string]string{}

	markupGrammar = grammar.Default()
)

func main() {
	// This increases logging verbosity (optional)
	commonlog.Configure(1, nil)

	if path := os.Getenv("CIVMARK_GRAMMAR"); path != "" {
		g, err := grammar.Load(path)
		if err != nil {
			log.Errorf("ignoring grammar file: %s", err)
		} else {
			markupGrammar = g
		}
	}

	protocol.SetTraceValue(protocol.TraceValueMessage)

	handler = protocol.Handler{
		Initialize:  initialize,
		Initialized: initialized,
		Shutdown:    shutdown,
		SetTrace:    setTrace,
		TextDocumentDidOpen: func(context *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
			setDocument(params.TextDocument.URI, params.TextDocument.Text)

			return handleDocument(context, params.TextDocument.URI)
		},
		TextDocumentDidChange: func(context *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
			content, ok := getDocument(params.TextDocument.URI)
			if !ok {
				return nil
			}

			for _, change := range params.ContentChanges {
				switch change := change.(type) {
				case protocol.TextDocumentContentChangeEventWhole:
					content = change.Text

				case protocol.TextDocumentContentChangeEvent:
					startIndex, endIndex := change.Range.IndexesIn(content)
					content = content[:startIndex] + change.Text + content[endIndex:]
				}
			}
			setDocument(params.TextDocument.URI, content)

			return handleDocument(context, params.TextDocument.URI)
		},
		TextDocumentDidClose: func(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
			documentsMu.Lock()
			delete(documents, params.TextDocument.URI)
			documentsMu.Unlock()

			context.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
				URI:         params.TextDocument.URI,
				Diagnostics: []protocol.Diagnostic{},
			})
			return nil
		},
	}

	server := server.NewServer(&handler, lsName, false)

	server.RunStdio()
}

func setDocument(uri, text string) {
	documentsMu.Lock()
	documents[uri] = text
	documentsMu.Unlock()
}

func getDocument(uri string) (string, bool) {
	documentsMu.Lock()
	defer documentsMu.Unlock()

	text, ok := documents[uri]
	return text, ok
}

func handleDocument(context *glsp.Context, docURI string) error {
	url, err := url.Parse(docURI)
	if err != nil {
		return fmt.Errorf("parse document uri: %w", err)
	}
	if url.Scheme != "file" {
		return fmt.Errorf("invalid document uri scheme %q", url.Scheme)
	}

	contents, ok := getDocument(docURI)
	if !ok {
		return nil
	}

	ws := workspace.New(filepath.Dir(url.Path), markupGrammar)

	context.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         docURI,
		Diagnostics: diagnose(ws, filepath.Base(url.Path), contents),
	})

	return nil
}

// diagnose parses a document and reports the error that stopped it, if any.
func diagnose(ws *workspace.Workspace, fileName, contents string) []protocol.Diagnostic {
	diag := []protocol.Diagnostic{}

	_, err := ws.LoadWithContents(fileName, []byte(contents))
	if err == nil {
		return diag
	}

	log.Debugf("%s: %s", fileName, err)

	d := protocol.Diagnostic{
		Severity: ptr(protocol.DiagnosticSeverityError),
		Source:   ptr(lsName),
		Message:  err.Error(),
	}

	if at, ok := errors.Position(err); ok {
		d.Range = protocol.Range{
			Start: pos(at),
			End:   pos(at),
		}

		var poserr errors.SituatedErr
		if goerrors.As(err, &poserr) {
			d.Message = poserr.Unwrap().Error()
		}
	}

	return append(diag, d)
}

func initialize(context *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := handler.CreateServerCapabilities()

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &version,
		},
	}, nil
}

func initialized(context *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func shutdown(context *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

// pos converts a lexer location to a protocol position, clamping values that don't fit.
func pos(l lexer.Location) protocol.Position {
	line, err := safecast.Conv[uint32](l.Line)
	if err != nil {
		line = 0
	}

	char, err := safecast.Conv[uint32](l.Column)
	if err != nil {
		char = 0
	}

	return protocol.Position{
		Line:      line,
		Character: char,
	}
}
