package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/orichalcum/internal/config"
	"github.com/aretw0/orichalcum/internal/dto"
	"github.com/aretw0/orichalcum/internal/logging"
	"github.com/aretw0/orichalcum/pkg/llm"
	"github.com/aretw0/orichalcum/pkg/registry"
	"github.com/aretw0/orichalcum/pkg/telemetry"
	"github.com/aretw0/orichalcum/pkg/value"
)

const qaGraph = `
name: qa
start: ask
nodes:
  - id: ask
    signature: "question -> answer"
    instruction: Answer the question.
    next: {default: review}
  - id: review
    signature: "answer -> verdict"
    instruction: Judge the answer.
`

func TestParseInputs(t *testing.T) {
	state, err := ParseInputs([]string{"question=What is 2+2?", "n=4", `tags=["a","b"]`, "empty="})
	require.NoError(t, err)

	q, _ := state.Get("question")
	assert.Equal(t, value.Text("What is 2+2?"), q)
	n, _ := state.Get("n")
	assert.Equal(t, value.Int(4), n)
	tags, _ := state.Get("tags")
	assert.Equal(t, value.KindList, tags.Kind())
	empty, _ := state.Get("empty")
	assert.Equal(t, value.Text(""), empty)

	_, err = ParseInputs([]string{"novalue"})
	assert.Error(t, err)
}

func TestRunSemantic(t *testing.T) {
	g, err := dto.Parse([]byte(qaGraph))
	require.NoError(t, err)

	provider := llm.NewScripted(`{"answer": "4"}`, `{"verdict": "correct"}`)
	f, err := BuildSemantic(g, provider, config.LLM{}, registry.New(), logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "qa", f.Name())

	shared, err := ParseInputs([]string{"question=What is 2+2?"})
	require.NoError(t, err)
	out, err := RunSemantic(context.Background(), f, shared)
	require.NoError(t, err)

	assert.Equal(t, []string{"ask", "review"}, out.Path)
	verdict, _ := shared.Get("verdict")
	assert.Equal(t, value.Text("correct"), verdict)
	assert.Len(t, provider.Prompts(), 2)
}

func TestBuildSemantic_LLMSettings(t *testing.T) {
	g, err := dto.Parse([]byte(qaGraph + "    model: judge-model\n"))
	require.NoError(t, err)

	provider := llm.NewScripted(`{"answer": "4"}`, `{"verdict": "correct"}`)
	settings := config.LLM{Model: "default-model", Temperature: 0.3}
	f, err := BuildSemantic(g, provider, settings, registry.New(), logging.NewNop())
	require.NoError(t, err)

	shared, err := ParseInputs([]string{"question=What is 2+2?"})
	require.NoError(t, err)
	_, err = RunSemantic(context.Background(), f, shared)
	require.NoError(t, err)

	opts := provider.Options()
	require.Len(t, opts, 2)
	assert.InDelta(t, 0.3, opts[0].Temperature, 1e-6)
	assert.InDelta(t, 0.3, opts[1].Temperature, 1e-6)
	assert.Equal(t, "default-model", opts[0].Model)
	assert.Equal(t, "judge-model", opts[1].Model, "a node's model wins")
}

func TestRunSemantic_RefusesMissingInputs(t *testing.T) {
	g, err := dto.Parse([]byte(qaGraph))
	require.NoError(t, err)

	provider := llm.NewScripted()
	f, err := BuildSemantic(g, provider, config.LLM{}, registry.New(), logging.NewNop())
	require.NoError(t, err)

	_, err = RunSemantic(context.Background(), f, nil)
	assert.ErrorContains(t, err, "question")
	assert.Empty(t, provider.Prompts(), "no model call before validation passes")
}

func TestBuildSemantic_SealErrors(t *testing.T) {
	g, err := dto.Parse([]byte(`
start: a
nodes:
  - {id: a, signature: "q ->", instruction: x}
`))
	require.NoError(t, err)
	_, err = BuildSemantic(g, llm.NewScripted(), config.LLM{}, registry.New(), logging.NewNop())
	assert.ErrorContains(t, err, `node "a"`)
}

func TestNewTelemetry(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = true

	tel, err := NewTelemetry(cfg)
	require.NoError(t, err)
	assert.NotNil(t, tel.Memory)
	assert.NotNil(t, tel.Metrics)
	assert.NotNil(t, tel.Registry)
	require.NoError(t, tel.Close())

	cfg = config.Default()
	cfg.Telemetry.Sink = config.SinkNone
	tel, err = NewTelemetry(cfg)
	require.NoError(t, err)
	assert.Nil(t, tel.Memory)
	assert.NoError(t, tel.Sink.Flush(context.Background()))

	cfg = config.Default()
	cfg.Telemetry.Sink = config.SinkFile
	cfg.Telemetry.File = filepath.Join(t.TempDir(), "trace.json")
	tel, err = NewTelemetry(cfg)
	require.NoError(t, err)
	require.NoError(t, tel.Sink.Record(context.Background(), telemetry.Event{TaskID: "a"}))
	require.NoError(t, tel.Sink.Flush(context.Background()))
	_, err = os.Stat(cfg.Telemetry.File)
	assert.NoError(t, err)
}

func TestNewProvider(t *testing.T) {
	cfg := config.Default()
	_, err := NewProvider(cfg, logging.NewNop())
	assert.ErrorIs(t, err, ErrNoProvider)

	cfg.LLM.Provider = config.ProviderOpenAI
	cfg.LLM.APIKeyEnv = "ORICHALCUM_TEST_KEY"
	t.Setenv("ORICHALCUM_TEST_KEY", "k")
	p, err := NewProvider(cfg, logging.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestProfile(t *testing.T) {
	assert.Equal(t, termenv.Ascii, Profile(&bytes.Buffer{}))
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
