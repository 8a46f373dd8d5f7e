package main

import (
	"testing"

	"github.com/pipe01/civmark/internal/lexer"
	"github.com/pipe01/civmark/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestDiagnose(t *testing.T) {
	ws := workspace.New(t.TempDir(), nil)

	assert.Empty(t, diagnose(ws, "ok.md", "fine **text**\n"))

	diag := diagnose(ws, "bad.md", "intro\n\n```go\nnever closed")
	require.Len(t, diag, 1)

	d := diag[0]
	assert.Equal(t, protocol.Position{Line: 2, Character: 0}, d.Range.Start)
	assert.Equal(t, "codeblock is never closed", d.Message)
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	assert.Equal(t, lsName, *d.Source)

	diag = diagnose(ws, "utf.md", "ok\n  \xff")
	require.Len(t, diag, 1)
	assert.Equal(t, protocol.Position{Line: 1, Character: 2}, diag[0].Range.Start)
}

func TestPosClampsNegative(t *testing.T) {
	assert.Equal(t, protocol.Position{}, pos(lexer.Location{Line: -1, Column: -3}))
	assert.Equal(t, protocol.Position{Line: 4, Character: 9}, pos(lexer.Location{Line: 4, Column: 9}))
}
