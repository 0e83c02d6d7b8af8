// Get command loads an object and prints its data.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jsonx/pkg/registry"
)

var flagGetRaw bool

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Load an object and print its data",
	Long: `Get loads the object with the given id and prints its property record.
With --raw the stored JSONx text is printed unchanged; otherwise the
record is decoded and rendered as plain JSON, references appearing in
their compact {"@": id} form.

Example:
  jsonx get 7
  jsonx get 7 --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().BoolVar(&flagGetRaw, "raw", false, "print the stored JSONx text unchanged")
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withCache(func(cache *registry.Cache) error {
		obj, err := cache.Load(id)
		if err != nil {
			return err
		}
		if flagGetRaw {
			data, err := cache.Codec().Marshal(obj.Data())
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		return printJSON(renderPlain(obj.Data()))
	})
}
