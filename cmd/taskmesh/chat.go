package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/taskmesh/engine"
)

func newChatCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long:  `Reads one message per line until EOF or "exit".`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tm, err := a.mesh(cmd.Context())
			if err != nil {
				return err
			}
			defer tm.Close()

			out := cmd.OutOrStdout()
			st := newStyles(out)
			in := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !in.Scan() {
					fmt.Fprintln(out)
					return in.Err()
				}
				line := strings.TrimSpace(in.Text())
				switch line {
				case "":
					continue
				case "exit", "quit":
					return nil
				}

				reply, err := tm.SendMessage(cmd.Context(), a.userID, line)
				switch {
				case errors.Is(err, engine.ErrInternal):
					// The reply already apologizes; the cause goes to the log.
					printReply(out, st, reply, false)
				case err != nil:
					fmt.Fprintln(out, st.err.Render(err.Error()))
					if cmd.Context().Err() != nil {
						return cmd.Context().Err()
					}
				default:
					printReply(out, st, reply, !quiet)
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide operation summaries")
	return cmd
}
