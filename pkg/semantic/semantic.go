// Package semantic builds sealed tasks whose execution step is a language
// model call. The signature drives both the prompt and the parsing of the
// reply.
package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/orichalcum/internal/logging"
	"github.com/aretw0/orichalcum/pkg/flow"
	"github.com/aretw0/orichalcum/pkg/llm"
	"github.com/aretw0/orichalcum/pkg/registry"
	"github.com/aretw0/orichalcum/pkg/schema"
	"github.com/aretw0/orichalcum/pkg/value"
)

// ErrNotObject is returned when a reply does not decode to a JSON object.
var ErrNotObject = errors.New("semantic: reply is not a JSON object")

// Builder collects the definition of a semantic task.
type Builder struct {
	provider     llm.Provider
	taskID       string
	instruction  string
	signature    string
	model        string
	temperature  float32
	descriptions map[string]string
	logger       *slog.Logger
}

// New starts a task definition answered by provider.
func New(provider llm.Provider) *Builder {
	return &Builder{
		provider:     provider,
		descriptions: make(map[string]string),
		logger:       logging.NewNop(),
	}
}

func (b *Builder) TaskID(id string) *Builder { b.taskID = id; return b }

func (b *Builder) Instruction(text string) *Builder { b.instruction = text; return b }

// Signature sets the contract in text form, e.g. "question -> answer".
func (b *Builder) Signature(text string) *Builder { b.signature = text; return b }

func (b *Builder) Model(model string) *Builder { b.model = model; return b }

func (b *Builder) Temperature(t float32) *Builder { b.temperature = t; return b }

// Describe attaches a description to an output field. It shows up in the
// prompt next to the key.
func (b *Builder) Describe(field, description string) *Builder {
	b.descriptions[field] = description
	return b
}

func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	if l != nil {
		b.logger = l
	}
	return b
}

// Seal builds the async node and seals it in reg.
func (b *Builder) Seal(reg *registry.Registry) (*flow.Sealed, error) {
	fail := func(reason string, err error) (*flow.Sealed, error) {
		return nil, &flow.SealError{TaskID: b.taskID, Reason: reason, Err: err}
	}
	if b.provider == nil {
		return fail("no provider", nil)
	}
	sig, err := schema.Parse(b.signature)
	if err != nil {
		return fail("invalid signature", err)
	}
	if len(sig.Outputs) == 0 {
		return fail("semantic task needs at least one output", nil)
	}
	for i, f := range sig.Outputs {
		if d, ok := b.descriptions[f.Name]; ok {
			sig.Outputs[i].Description = d
		}
	}

	l := &logic{
		provider:    b.provider,
		instruction: b.instruction,
		sig:         sig,
		opts: llm.Options{
			Model:       b.model,
			JSONMode:    true,
			Temperature: b.temperature,
		},
		logger: b.logger.With("task", b.taskID),
	}
	node := flow.NewAsyncNode(l,
		flow.WithName(b.taskID),
		flow.WithActions(flow.DefaultAction),
		flow.WithNodeLogger(b.logger),
	)
	return flow.Seal(reg, node, flow.SealConfig{
		TaskID:      b.taskID,
		Instruction: b.instruction,
		Signature:   b.signature,
		Model:       b.model,
	})
}

type logic struct {
	provider    llm.Provider
	instruction string
	sig         schema.Signature
	opts        llm.Options
	logger      *slog.Logger
}

func (l *logic) Prep(_ flow.Params, shared flow.Reader) (value.Value, error) {
	inputs := make(map[string]value.Value, len(l.sig.Inputs))
	for _, f := range l.sig.Inputs {
		v, _ := shared.Get(f.Name)
		inputs[f.Name] = v
	}
	return value.Map(inputs), nil
}

func (l *logic) Exec(ctx context.Context, prepared value.Value) (value.Value, error) {
	prompt, err := l.prompt(prepared)
	if err != nil {
		return value.Null(), err
	}
	reply, err := l.provider.Complete(ctx, prompt, l.opts)
	if err != nil {
		return value.Null(), err
	}
	return value.Text(reply), nil
}

func (l *logic) Post(shared flow.State, _, executed value.Value) (flow.Action, error) {
	reply, _ := executed.AsText()
	parsed, err := ParseReply(reply)
	if err != nil {
		return flow.NoAction, err
	}
	for _, f := range l.sig.Outputs {
		v, ok := parsed.Field(f.Name)
		if !ok {
			l.logger.Warn("model reply is missing an output", "field", f.Name)
			continue
		}
		shared.Set(f.Name, v)
	}
	return flow.DefaultAction, nil
}

func (l *logic) prompt(inputs value.Value) (string, error) {
	data, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("semantic: encode inputs: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Task Instruction: ")
	sb.WriteString(l.instruction)
	sb.WriteString("\n\nInput Data:\n")
	sb.Write(data)
	sb.WriteString("\n\nRespond ONLY with a valid JSON object matching the following output keys:\n")
	for _, f := range l.sig.Outputs {
		desc := f.Description
		if desc == "" {
			desc = f.Kind.String()
		}
		fmt.Fprintf(&sb, "- %s: %s\n", f.Name, desc)
	}
	return sb.String(), nil
}

// ParseReply decodes a model reply into a Map. Markdown code fences around
// the object are tolerated.
func ParseReply(reply string) (value.Value, error) {
	text := stripFences(reply)
	v, err := value.ParseJSON([]byte(text))
	if err != nil {
		return value.Null(), fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if v.Kind() != value.KindMap {
		return value.Null(), fmt.Errorf("%w: got %s", ErrNotObject, v.Kind())
	}
	return v, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
