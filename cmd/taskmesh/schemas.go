package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/taskmesh/format"
)

func newSchemasCmd() *cobra.Command {
	var example bool
	cmd := &cobra.Command{
		Use:   "schemas [operation]",
		Short: "List response schemas or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := format.DefaultRegistry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range reg.Names() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			name := args[0]
			if example {
				data, ok := reg.Example(name)
				if !ok {
					return fmt.Errorf("no example for %q", name)
				}
				_, err := fmt.Fprintln(out, string(data))
				return err
			}
			doc, ok := reg.Schema(name)
			if !ok {
				return fmt.Errorf("no schema for %q", name)
			}
			return writeJSON(out, doc)
		},
	}
	cmd.Flags().BoolVarP(&example, "example", "e", false, "print the example payload instead of the schema")
	return cmd
}
