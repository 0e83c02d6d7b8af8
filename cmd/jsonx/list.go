// List command prints the stored object records.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jsonx/internal/sqlite"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored objects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *sqlite.Store) error {
			records, err := store.ListRecords()
			if err != nil {
				return err
			}
			if flagJSON {
				out := make([]map[string]any, 0, len(records))
				for _, rec := range records {
					out = append(out, map[string]any{
						"id":         rec.ID,
						"rev":        rec.Rev,
						"created_at": rec.CreatedAt,
						"updated_at": rec.UpdatedAt,
					})
				}
				return printJSON(out)
			}
			for _, rec := range records {
				fmt.Printf("%d\t%s\t%s\n", rec.ID, rec.Rev, rec.UpdatedAt)
			}
			return nil
		})
	},
}
