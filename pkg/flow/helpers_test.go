package flow

import (
	"bytes"
	"log/slog"

	"github.com/aretw0/orichalcum/internal/logging"
	"github.com/aretw0/orichalcum/pkg/value"
)

// setNode writes key=v in Post and returns action.
func setNode(name, key string, v value.Value, action Action) *Node {
	return NewNode(Funcs{
		PostFn: func(s State, _, _ value.Value) (Action, error) {
			s.Set(key, v)
			return action, nil
		},
	}, WithName(name))
}

// returnNode only returns action.
func returnNode(name string, action Action) *Node {
	return NewNode(Funcs{
		PostFn: func(State, value.Value, value.Value) (Action, error) {
			return action, nil
		},
	}, WithName(name))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.NewWithOptions(&buf, slog.LevelDebug, "text"), &buf
}

// squares prepares the list stored under "items", squares each item and
// stores the sum under "sum".
type squares struct {
	observe func(value.Value)
}

func (squares) Prep(_ Params, shared Reader) (value.Value, error) {
	items, _ := shared.Get("items")
	return items, nil
}

func (squares) Exec(item value.Value) (value.Value, error) {
	n, _ := item.AsNumber()
	return value.Number(n * n), nil
}

func (s squares) Post(shared State, _, executed value.Value) (Action, error) {
	if s.observe != nil {
		s.observe(executed)
	}
	items, _ := executed.AsList()
	sum := 0.0
	for _, it := range items {
		n, _ := it.AsNumber()
		sum += n
	}
	shared.Set("sum", value.Number(sum))
	return NoAction, nil
}
