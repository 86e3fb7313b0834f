package flow

import (
	"context"
	"strings"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
)

// Composer defaults.
const (
	DefaultComposerTemperature = 0.7
	DefaultFallbackReply       = "Action completed."
)

// ComposerOptions configures a Composer.
type ComposerOptions struct {
	Temperature   float64
	FallbackReply string
	Logger        logging.Logger
}

// Composer produces the final prose reply from operation results.
type Composer struct {
	model model.Model
	opts  ComposerOptions
}

// NewComposer creates a Composer backed by m.
func NewComposer(m model.Model, optFns ...func(o *ComposerOptions)) *Composer {
	opts := ComposerOptions{
		Temperature:   DefaultComposerTemperature,
		FallbackReply: DefaultFallbackReply,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.FallbackReply == "" {
		opts.FallbackReply = DefaultFallbackReply
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Composer{model: m, opts: opts}
}

// Compose replays the assistant tool-call turn and one tool turn per result
// after transcript and asks the model, without tools, for a reply. It never
// fails: any problem yields the fallback reply.
func (c *Composer) Compose(ctx context.Context, transcript []core.Content, sel Selection, results []Result) string {
	contents := make([]core.Content, 0, len(transcript)+1+len(results))
	contents = append(contents, transcript...)
	contents = append(contents, sel.Assistant)
	for _, r := range results {
		contents = append(contents, core.Content{
			Role:  core.RoleTool,
			Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: r.Response()}},
		})
	}

	resp, err := model.Collect(ctx, c.model, model.Request{
		Contents:    contents,
		ToolChoice:  model.ToolChoiceNone,
		Temperature: model.Temperature(c.opts.Temperature),
	})
	if err != nil {
		c.opts.Logger.Error("flow.composer.failed", "error", err)
		return c.opts.FallbackReply
	}
	reply := strings.TrimSpace(resp.Content.Text())
	if reply == "" {
		c.opts.Logger.Warn("flow.composer.empty")
		return c.opts.FallbackReply
	}
	return reply
}
