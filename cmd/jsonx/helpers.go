// Shared helpers for command input and output.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mesh-intelligence/jsonx/pkg/jsonx"
)

// parseID parses a positive object id from a command argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid object id %q", arg)
	}
	return id, nil
}

// readInput reads the optional file argument, "-" or no argument meaning
// stdin.
func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}

// renderPlain converts a decoded value into something encoding/json can
// print for humans: containers flatten, times format, references show as
// their compact envelope.
func renderPlain(v any) any {
	switch x := v.(type) {
	case *jsonx.Set:
		out := make([]any, 0, x.Len())
		for _, el := range x.Values() {
			out = append(out, renderPlain(el))
		}
		return out
	case *jsonx.Map:
		out := make(map[string]any, x.Len())
		for _, k := range x.Keys() {
			el, _ := x.Get(k)
			out[k] = renderPlain(el)
		}
		return out
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case jsonx.Ref:
		return map[string]any{jsonx.ClassKey: x.ID()}
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, el := range x {
			out[k] = renderPlain(el)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, el := range x {
			out[i] = renderPlain(el)
		}
		return out
	default:
		return v
	}
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
