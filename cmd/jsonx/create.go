// Create command stores a new object.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jsonx/pkg/registry"
	"github.com/mesh-intelligence/jsonx/pkg/webobj"
)

var createCmd = &cobra.Command{
	Use:   "create [file]",
	Short: "Store a new object from a JSONx record",
	Long: `Create reads a JSONx record from the given file (or stdin) and stores it
as a new object, printing the assigned id. The input is a JSON object;
tagged envelopes and {"@": id} references inside it are understood.

Example:
  echo '{"name": "hub", "parent": {"@": 1}}' | jsonx create`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	input, err := readInput(args)
	if err != nil {
		return err
	}
	return withCache(func(cache *registry.Cache) error {
		rec, err := decodeRecord(cache, input)
		if err != nil {
			return err
		}
		obj := webobj.New()
		obj.SetData(rec)
		id, err := cache.Save(obj)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(map[string]any{"id": id})
		}
		fmt.Println(id)
		return nil
	})
}

// decodeRecord parses input as a JSONx document and requires a record.
func decodeRecord(cache *registry.Cache, input []byte) (map[string]any, error) {
	v, err := cache.Codec().Unmarshal(input)
	if err != nil {
		return nil, err
	}
	rec, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("input must be a JSON object, got %T", v)
	}
	return rec, nil
}
