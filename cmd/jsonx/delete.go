// Delete command removes an object from the store.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jsonx/pkg/registry"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withCache(func(cache *registry.Cache) error {
			if err := cache.Delete(id); err != nil {
				return err
			}
			fmt.Println("Deleted", id)
			return nil
		})
	},
}
