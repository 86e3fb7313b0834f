package flow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/tool"
)

// Result is the outcome of one invocation. Failures never escape as Go
// errors; they are folded into Success=false plus a non-empty Error.
type Result struct {
	InvocationID string `json:"-"`
	Name         string `json:"-"`
	Success      bool   `json:"success"`
	Output       any    `json:"output,omitempty"`
	Error        string `json:"error,omitempty"`
	Code         string `json:"-"` // tool.Code* on failure
}

// Response converts the result into the function response replayed to the
// model.
func (r Result) Response() core.FunctionResponse {
	return core.FunctionResponse{ID: r.InvocationID, Name: r.Name, Response: r.Output, Error: r.Error}
}

// HandlerFactory returns the handler executing operations for userID.
type HandlerFactory func(userID string) tool.Handler

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// MaxParallel bounds concurrently running invocations. Zero or less
	// means no bound.
	MaxParallel int
	Logger      logging.Logger
}

// Executor validates and dispatches invocations.
type Executor struct {
	catalog  *tool.Catalog
	handlers HandlerFactory
	opts     ExecutorOptions
}

// NewExecutor creates an Executor over catalog and handlers.
func NewExecutor(catalog *tool.Catalog, handlers HandlerFactory, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Executor{catalog: catalog, handlers: handlers, opts: opts}
}

// Execute runs all invocations concurrently and returns their results in
// input order. Invocations are independent: one failing does not cancel
// the others.
func (e *Executor) Execute(ctx context.Context, userID string, invocations []Invocation) []Result {
	results := make([]Result, len(invocations))
	if len(invocations) == 0 {
		return results
	}

	h := e.handlers(userID)
	if len(invocations) == 1 {
		results[0] = e.execute(ctx, h, invocations[0])
		return results
	}

	start := time.Now()
	var g errgroup.Group
	if e.opts.MaxParallel > 0 {
		g.SetLimit(e.opts.MaxParallel)
	}
	for i, inv := range invocations {
		g.Go(func() error {
			results[i] = e.execute(ctx, h, inv)
			return nil
		})
	}
	_ = g.Wait()

	e.opts.Logger.Debug("flow.executor.batch.complete",
		"count", len(invocations),
		"max_parallel", e.opts.MaxParallel,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results
}

// ExecuteOne runs a single invocation.
func (e *Executor) ExecuteOne(ctx context.Context, userID string, inv Invocation) Result {
	return e.execute(ctx, e.handlers(userID), inv)
}

func (e *Executor) execute(ctx context.Context, h tool.Handler, inv Invocation) Result {
	start := time.Now()
	res := Result{InvocationID: inv.ID, Name: inv.Name}

	out, err := e.run(ctx, h, inv)
	if err != nil {
		var te *tool.ToolError
		if !errors.As(err, &te) {
			te = tool.WrapError(inv.Name, tool.CodeExecution, err)
		}
		res.Error, res.Code = te.Message, te.Code
		if res.Error == "" {
			res.Error = te.Error()
		}
	} else {
		res.Success, res.Output = true, out
	}

	e.opts.Logger.Info("flow.executor.invocation",
		"operation", inv.Name,
		"invocation_id", inv.ID,
		"success", res.Success,
		"code", res.Code,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (e *Executor) run(ctx context.Context, h tool.Handler, inv Invocation) (out any, err error) {
	args, err := util.DecodeArguments(inv.Arguments)
	if err != nil {
		return nil, tool.WrapError(inv.Name, tool.CodeParse, err)
	}
	args = util.SanitizeArguments(args)

	if err := e.catalog.Validate(inv.Name, args); err != nil {
		return nil, classify(inv.Name, err)
	}
	op, err := tool.Decode(inv.Name, args)
	if err != nil {
		return nil, classify(inv.Name, err)
	}

	defer func() {
		if r := recover(); r != nil {
			e.opts.Logger.Error("flow.executor.panic", "operation", inv.Name, "recover", r, "stack", string(debug.Stack()))
			out, err = nil, tool.NewToolError(inv.Name, fmt.Sprintf("panic: %v", r), tool.CodePanic)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, tool.WrapError(inv.Name, tool.CodeExecution, err)
	}
	out, err = op.Dispatch(ctx, h)
	if err != nil {
		return nil, tool.WrapError(inv.Name, tool.CodeExecution, err)
	}
	return out, nil
}

func classify(name string, err error) *tool.ToolError {
	if errors.Is(err, tool.ErrUnknownTool) {
		return tool.WrapError(name, tool.CodeUnknown, tool.ErrUnknownTool)
	}
	return tool.WrapError(name, tool.CodeValidation, err)
}
