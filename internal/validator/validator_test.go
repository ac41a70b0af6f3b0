package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/orichalcum/internal/dto"
	"github.com/aretw0/orichalcum/pkg/flow"
	"github.com/aretw0/orichalcum/pkg/schema"
)

func parse(t *testing.T, src string) *dto.GraphFile {
	t.Helper()
	g, err := dto.Parse([]byte(src))
	require.NoError(t, err)
	return g
}

func TestValidateGraph_Valid(t *testing.T) {
	g := parse(t, `
name: qa
start: ask
initial: [question]
nodes:
  - id: ask
    signature: "question -> answer"
    instruction: Answer.
    next: {default: publish}
  - id: publish
    signature: "answer -> receipt"
    instruction: Publish.
`)
	report, err := ValidateGraph(g)
	require.NoError(t, err)
	assert.True(t, report.OK(true))
	assert.Empty(t, report.Result.Issues)
	assert.Equal(t, "qa", report.Graph)
}

func TestValidateGraph_MissingInputs(t *testing.T) {
	g := parse(t, `
start: split
nodes:
  - id: split
    signature: "-> flag"
    instruction: Decide.
    actions: [enrich, skip]
    next: {enrich: enrich, skip: join}
  - id: enrich
    signature: "flag -> extra"
    instruction: Enrich.
    next: {default: join}
  - id: join
    signature: "extra, ticket -> done"
    instruction: Join.
`)
	report, err := ValidateGraph(g)
	require.NoError(t, err)
	require.False(t, report.OK(false))

	byField := map[string]schema.ValidationIssue{}
	for _, issue := range report.Result.Errors() {
		byField[issue.Field] = issue
	}
	require.Contains(t, byField, "extra")
	assert.Equal(t, schema.Sometimes, byField["extra"].Availability)
	require.Contains(t, byField, "ticket")
	assert.Equal(t, schema.Never, byField["ticket"].Availability)
	assert.Equal(t, "join", byField["ticket"].Node)
}

func TestValidateGraph_RouteWarningsAndStrict(t *testing.T) {
	g := parse(t, `
start: a
nodes:
  - id: a
    signature: "->"
    instruction: Start.
    actions: [ok, unsure]
    next: {ok: b}
  - id: b
    signature: "->"
    instruction: End.
  - id: orphan
    signature: "->"
    instruction: Never reached.
`)
	report, err := ValidateGraph(g)
	require.NoError(t, err)
	assert.True(t, report.OK(false))
	assert.False(t, report.OK(true))
	assert.Equal(t, []string{"orphan"}, report.Unreachable)

	warnings := report.Result.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, schema.UnroutedAction, warnings[0].Code)
	assert.Equal(t, "unsure", warnings[0].Field)
}

func TestValidateGraph_StructuralErrors(t *testing.T) {
	cases := map[string]string{
		"no start": `
nodes:
  - {id: a, signature: "->", instruction: x}
`,
		"bad signature": `
start: a
nodes:
  - {id: a, signature: "a b", instruction: x}
`,
		"duplicate task": `
start: a
nodes:
  - {id: a, task_id: t, signature: "->", instruction: x}
  - {id: b, task_id: t, signature: "->", instruction: x}
`,
		"dangling edge": `
start: a
nodes:
  - {id: a, signature: "->", instruction: x, next: {default: ghost}}
`,
		"empty instruction": `
start: a
nodes:
  - {id: a, signature: "->", instruction: ""}
`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateGraph(parse(t, src))
			assert.Error(t, err)
		})
	}

	_, err := ValidateGraph(parse(t, `
start: a
nodes:
  - {id: a, task_id: t, signature: "->", instruction: x}
  - {id: b, task_id: t, signature: "->", instruction: x}
`))
	var sealErr *flow.SealError
	assert.ErrorAs(t, err, &sealErr)
}

func TestValidateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"start": "a", "nodes": [{"id": "a", "signature": "x -> y", "instruction": "go"}]}`), 0o644))

	report, err := ValidateFile(path)
	require.NoError(t, err)
	assert.False(t, report.OK(false))

	_, err = ValidateFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
