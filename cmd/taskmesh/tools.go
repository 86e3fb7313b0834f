package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/taskmesh"
)

func newToolsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the operations the assistant can perform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ops := taskmesh.Operations()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), ops)
			}
			out := cmd.OutOrStdout()
			st := newStyles(out)
			for _, op := range ops {
				fmt.Fprintln(out, st.name.Render(op.Name))
				fmt.Fprintf(out, "  %s\n", op.Description)
				if op.Parameters == nil || len(op.Parameters.Properties) == 0 {
					continue
				}
				params := make([]string, 0, len(op.Parameters.Properties))
				for name := range op.Parameters.Properties {
					params = append(params, name)
				}
				sort.Strings(params)
				fmt.Fprintln(out, st.summary.Render("  params: "+strings.Join(params, ", ")))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the definitions with their parameter schemas")
	return cmd
}
