// Package dto holds the on-disk contract graph format.
package dto

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// GraphFile is a contract graph: sealed task declarations wired by label.
// It describes shape only; no logic is attached.
type GraphFile struct {
	Name  string `json:"name" mapstructure:"name"`
	Start string `json:"start" mapstructure:"start"`
	// Initial lists the keys present in shared state before the run.
	Initial []string   `json:"initial" mapstructure:"initial"`
	Nodes   []NodeSpec `json:"nodes" mapstructure:"nodes"`
}

// NodeSpec declares one task of the graph.
type NodeSpec struct {
	ID          string `json:"id" mapstructure:"id"`
	TaskID      string `json:"task_id" mapstructure:"task_id"`
	Signature   string `json:"signature" mapstructure:"signature"`
	Instruction string `json:"instruction" mapstructure:"instruction"`
	Model       string `json:"model" mapstructure:"model"`
	// Actions are the labels the task may emit.
	Actions []string          `json:"actions" mapstructure:"actions"`
	Next    map[string]string `json:"next" mapstructure:"next"`
}

// Task returns the task id, falling back to the node id.
func (n NodeSpec) Task() string {
	if n.TaskID != "" {
		return n.TaskID
	}
	return n.ID
}

// Parse decodes a graph from YAML or JSON.
func Parse(data []byte) (*GraphFile, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}

	var g GraphFile
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &g,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	return &g, nil
}

// Load reads and parses a graph file.
func Load(path string) (*GraphFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph %s: %w", path, err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
