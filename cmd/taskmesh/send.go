package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/taskmesh/engine"
)

func newSendCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tm, err := a.mesh(cmd.Context())
			if err != nil {
				return err
			}
			defer tm.Close()

			reply, err := tm.SendMessage(cmd.Context(), a.userID, strings.Join(args, " "))
			if err != nil && !errors.Is(err, engine.ErrInternal) {
				return err
			}
			if asJSON {
				if jerr := writeJSON(cmd.OutOrStdout(), reply); jerr != nil {
					return jerr
				}
				return err
			}
			printReply(cmd.OutOrStdout(), newStyles(cmd.OutOrStdout()), reply, false)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reply with its structured payload as JSON")
	return cmd
}

func printReply(w io.Writer, st styles, reply engine.Reply, verbose bool) {
	fmt.Fprintln(w, st.reply.Render(reply.Reply))
	if verbose && reply.StructuredResponse != nil {
		if s := reply.StructuredResponse.Summary(); s != "" {
			fmt.Fprintln(w, st.summary.Render("  "+s))
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
