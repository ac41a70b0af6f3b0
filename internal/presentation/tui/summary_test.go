package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/aretw0/orichalcum/pkg/schema"
)

func TestPrintSummary_Plain(t *testing.T) {
	res := schema.ValidationResult{Issues: []schema.ValidationIssue{
		schema.MissingInputIssue("join", "join", schema.Field{Name: "ticket"}, schema.Never),
		schema.MissingInputIssue("join", "join", schema.Field{Name: "note", Optional: true}, schema.Sometimes),
	}}

	var buf bytes.Buffer
	PrintSummary(&buf, termenv.Ascii, "graph.yaml", res, []string{"orphan"})
	out := buf.String()

	assert.Contains(t, out, "✘ graph.yaml: 1 error(s), 1 warning(s)")
	assert.Contains(t, out, `error   node "join" requires input "ticket"`)
	assert.Contains(t, out, "missing_input")
	assert.Contains(t, out, `node "orphan" is unreachable from start`)
	assert.NotContains(t, out, "\x1b[", "ascii profile emits no escapes")
}

func TestPrintSummary_Clean(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, termenv.TrueColor, "g", schema.ValidationResult{}, nil)
	out := buf.String()

	assert.Contains(t, out, "g: no issues found")
	assert.True(t, strings.Contains(out, "\x1b["), "true color profile is styled")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, termenv.Ascii)
	assert.Equal(t, 7, strings.Count(buf.String(), "\n"))
}
