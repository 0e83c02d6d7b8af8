// Classpath command lists the registered classpaths.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var classpathCmd = &cobra.Command{
	Use:   "classpath",
	Short: "List registered classpaths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		classes, err := buildClasspath()
		if err != nil {
			return err
		}
		paths := classes.Paths()
		if flagJSON {
			return printJSON(paths)
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}
