package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/layout"
)

// MarshalLayout serializes a layout result to pretty-printed JSON bytes.
func MarshalLayout(res layout.Result) ([]byte, error) {
	return json.MarshalIndent(res, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a layout result.
// Every connection must reference nodes present in the layout.
func UnmarshalLayout(data []byte) (layout.Result, error) {
	var res layout.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return layout.Result{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "unmarshal layout")
	}
	if res.Nodes == nil {
		res.Nodes = []layout.Node{}
	}
	if res.Connections == nil {
		res.Connections = []layout.Connection{}
	}
	if res.Generations == nil {
		res.Generations = []int{}
	}

	ids := make(map[string]bool, len(res.Nodes))
	for _, n := range res.Nodes {
		if n.ID == "" {
			return layout.Result{}, errors.New(errors.ErrCodeInvalidFormat, "layout node without id")
		}
		ids[n.ID] = true
	}
	for _, c := range res.Connections {
		if !ids[c.From] || !ids[c.To] {
			return layout.Result{}, errors.New(errors.ErrCodeInvalidFormat, "connection %s -> %s references unknown node", c.From, c.To)
		}
	}
	return res, nil
}

// WriteLayoutFile writes a layout to a JSON file.
func WriteLayoutFile(res layout.Result, path string) error {
	data, err := MarshalLayout(res)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a layout from a JSON file.
func ReadLayoutFile(path string) (layout.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return layout.Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
