package main

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hupe1980/taskmesh"
	"github.com/hupe1980/taskmesh/config"
)

// app carries the state shared by subcommands.
type app struct {
	configPath string
	userID     string

	// open builds the orchestrator; tests replace it.
	open func(ctx context.Context, cfg *config.Config) (*taskmesh.TaskMesh, error)
}

func newApp() *app {
	return &app{
		open: func(ctx context.Context, cfg *config.Config) (*taskmesh.TaskMesh, error) {
			return taskmesh.New(ctx, func(o *taskmesh.Options) { o.Config = cfg })
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskmesh",
		Short:         "Manage tasks by talking to them",
		Long:          `taskmesh turns natural language into task operations and answers in plain prose.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath(), "config file")
	root.PersistentFlags().StringVarP(&a.userID, "user", "u", defaultUser(), "user id the conversation belongs to")

	root.AddCommand(
		newChatCmd(a),
		newSendCmd(a),
		newToolsCmd(),
		newSchemasCmd(),
	)
	return root
}

// mesh loads the configuration and opens the orchestrator.
func (a *app) mesh(ctx context.Context) (*taskmesh.TaskMesh, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	return a.open(ctx, cfg)
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

type styles struct {
	reply   lipgloss.Style
	summary lipgloss.Style
	err     lipgloss.Style
	name    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		reply:   r.NewStyle().Bold(true),
		summary: r.NewStyle().Faint(true),
		err:     r.NewStyle().Foreground(lipgloss.Color("#e53935")),
		name:    r.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true),
	}
}
