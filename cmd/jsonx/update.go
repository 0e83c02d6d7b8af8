// Update command replaces an object's data.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jsonx/pkg/registry"
)

var updateCmd = &cobra.Command{
	Use:   "update <id> [file]",
	Short: "Replace an object's data with a new JSONx record",
	Long: `Update reads a JSONx record from the given file (or stdin) and replaces
the data of the object with the given id.

Example:
  jsonx update 7 record.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	input, err := readInput(args[1:])
	if err != nil {
		return err
	}
	return withCache(func(cache *registry.Cache) error {
		obj, err := cache.Load(id)
		if err != nil {
			return err
		}
		rec, err := decodeRecord(cache, input)
		if err != nil {
			return err
		}
		obj.SetData(rec)
		if _, err := cache.Save(obj); err != nil {
			return err
		}
		fmt.Println("Updated", id)
		return nil
	})
}
