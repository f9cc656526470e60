package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/tima/internal/ir"
)

// marshalAutomata converts the name -> fingerprint map to canonical JSON
// TEXT for storage.
func marshalAutomata(automata map[string]string) (string, error) {
	obj := make(map[string]any, len(automata))
	for name, fp := range automata {
		obj[name] = fp
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal automata: %w", err)
	}
	return string(data), nil
}

func unmarshalAutomata(data string) (map[string]string, error) {
	out := map[string]string{}
	if data == "" || data == "{}" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal automata: %w", err)
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
