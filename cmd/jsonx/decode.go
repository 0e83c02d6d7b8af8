// Decode command renders the plain view of a JSONx document.
package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jsonx/pkg/jsonx"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode a JSONx document and print its plain view",
	Long: `Decode parses a JSONx document from the given file (or stdin), resolves
its tagged envelopes, and prints the reconstructed value as plain JSON.
References stay unresolved and print in their compact {"@": id} form; no
store access happens.

Example:
  echo '{"p": {"x": 1, "y": 2, "@": "geo:Point"}}' | jsonx decode`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	input, err := readInput(args)
	if err != nil {
		return err
	}
	classes, err := buildClasspath()
	if err != nil {
		return err
	}
	codec := jsonx.New(classes, stubResolver{})
	v, err := codec.Unmarshal(input)
	if err != nil {
		return err
	}
	return printJSON(renderPlain(v))
}
