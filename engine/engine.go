package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/flow"
	"github.com/hupe1980/taskmesh/format"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/session"
	"github.com/hupe1980/taskmesh/task"
	"github.com/hupe1980/taskmesh/tool"
)

// Sentinel errors returned by SendMessage.
var (
	// ErrInvalidInput reports an empty user id or message.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal reports a request that could not be completed. The Reply
	// returned alongside carries ErrorReply.
	ErrInternal = errors.New("internal error")
)

// ErrorReply is the user-facing reply for ErrInternal.
const ErrorReply = "Sorry, something went wrong while processing your message."

// Reply is the outcome of one message.
type Reply struct {
	Reply string `json:"reply"`
	// StructuredResponse is the formatted output of the first successful
	// invocation. Nil for smalltalk, all-failed requests and strict-mode
	// validation failures.
	StructuredResponse *format.Structured `json:"structured_response,omitempty"`
	// OptionalData holds every result keyed by invocation id plus the
	// ordered list under "results".
	OptionalData map[string]any `json:"optional_data,omitempty"`
}

// Options configures an Engine. Every collaborator has an in-memory or
// default implementation.
type Options struct {
	Catalog   *tool.Catalog
	Turns     session.Store
	Directory session.Directory
	Formatter format.Formatter
	// Handlers overrides the operation handlers built over the task store.
	Handlers  flow.HandlerFactory
	Callbacks *CallbackManager
	Logger    logging.Logger
	Now       func() time.Time

	HistoryWindow       int
	MaxParallel         int
	ComposerTemperature float64
	FallbackReply       string
	TurnQueueSize       int
}

// Engine handles user messages. It is safe for concurrent use; Close must
// be called to flush pending turn writes.
type Engine struct {
	catalog   *tool.Catalog
	directory session.Directory
	formatter format.Formatter
	callbacks *CallbackManager
	logger    logging.Logger
	now       func() time.Time

	assembler *flow.ContextAssembler
	selector  *flow.Selector
	executor  *flow.Executor
	composer  *flow.Composer
	turns     *TurnWriter
}

// New creates an Engine driving m over the task store tasks.
func New(m model.Model, tasks task.Store, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger:              logging.NoOpLogger{},
		Now:                 time.Now,
		HistoryWindow:       flow.DefaultHistoryWindow,
		ComposerTemperature: flow.DefaultComposerTemperature,
		FallbackReply:       flow.DefaultFallbackReply,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.Catalog == nil {
		opts.Catalog = tool.DefaultCatalog()
	}
	if opts.Turns == nil || opts.Directory == nil {
		mem := session.NewInMemoryStore()
		if opts.Turns == nil {
			opts.Turns = mem
		}
		if opts.Directory == nil {
			opts.Directory = mem
		}
	}
	if opts.Formatter == nil {
		opts.Formatter = format.NewMappingFormatter(func(o *format.Options) { o.Logger = opts.Logger })
	}
	if opts.Handlers == nil {
		opts.Handlers = flow.TaskHandlers(tasks, func(o *flow.HandlerOptions) {
			o.Now = opts.Now
			o.Logger = opts.Logger
		})
	}
	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}

	return &Engine{
		catalog:   opts.Catalog,
		directory: opts.Directory,
		formatter: opts.Formatter,
		callbacks: opts.Callbacks,
		logger:    opts.Logger,
		now:       opts.Now,
		assembler: flow.NewContextAssembler(opts.Turns, func(o *flow.AssemblerOptions) {
			o.HistoryWindow = opts.HistoryWindow
			o.Now = opts.Now
			o.Logger = opts.Logger
		}),
		selector: flow.NewSelector(m, func(o *flow.SelectorOptions) { o.Logger = opts.Logger }),
		executor: flow.NewExecutor(opts.Catalog, opts.Handlers, func(o *flow.ExecutorOptions) {
			o.MaxParallel = opts.MaxParallel
			o.Logger = opts.Logger
		}),
		composer: flow.NewComposer(m, func(o *flow.ComposerOptions) {
			o.Temperature = opts.ComposerTemperature
			o.FallbackReply = opts.FallbackReply
			o.Logger = opts.Logger
		}),
		turns: NewTurnWriter(opts.Turns, func(o *TurnWriterOptions) {
			o.QueueSize = opts.TurnQueueSize
			o.Logger = opts.Logger
		}),
	}
}

// Catalog returns the operations offered to the model.
func (e *Engine) Catalog() *tool.Catalog { return e.catalog }

// TurnWriter exposes the background turn writer (errors, counters).
func (e *Engine) TurnWriter() *TurnWriter { return e.turns }

// Close flushes pending turn writes. The stores are owned by the caller.
func (e *Engine) Close() error { return e.turns.Close() }

// SendMessage handles one user message.
func (e *Engine) SendMessage(ctx context.Context, userID, message string) (Reply, error) {
	userID, message = strings.TrimSpace(userID), strings.TrimSpace(message)
	if userID == "" {
		return Reply{}, fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}
	if message == "" {
		return Reply{}, fmt.Errorf("%w: empty message", ErrInvalidInput)
	}

	profile, err := e.directory.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrInvalidUser) {
			return Reply{}, err
		}
		return e.fail(ctx, &CallbackContext{UserID: userID, Message: message}, fmt.Errorf("resolve user: %w", err), false)
	}

	start := time.Now()
	cbCtx := &CallbackContext{UserID: userID, Message: message, Metadata: map[string]any{}}
	if err := e.callbacks.ExecuteCallbacks(ctx, CallbackBeforeMessage, cbCtx); err != nil {
		return Reply{}, err
	}
	userTurn := e.turn(userID, core.RoleUser, message)

	transcript, err := e.assembler.Assemble(ctx, userID, message, profile)
	if err != nil {
		return e.fail(ctx, cbCtx, err, true, userTurn)
	}

	sel, err := e.selector.Select(ctx, transcript, e.catalog)
	if err != nil {
		return e.fail(ctx, cbCtx, err, true, userTurn)
	}
	cbCtx.Selection = &sel
	e.observe(ctx, CallbackAfterSelect, cbCtx)

	var reply Reply
	if sel.Smalltalk() {
		reply.Reply = sel.DirectReply
		if reply.Reply == "" {
			reply.Reply = e.composer.Compose(ctx, transcript, sel, nil)
		}
	} else {
		results := e.executor.Execute(ctx, userID, sel.Invocations)
		cbCtx.Results = results
		e.observe(ctx, CallbackAfterExecute, cbCtx)

		reply.Reply = e.composer.Compose(ctx, transcript, sel, results)
		reply.StructuredResponse = e.structured(ctx, results)
		reply.OptionalData = optionalData(results)
	}

	cbCtx.Reply = &reply
	e.observe(ctx, CallbackAfterReply, cbCtx)
	e.turns.Write(userTurn, e.turn(userID, core.RoleAssistant, reply.Reply))

	e.logger.Info("engine.send.complete",
		"user_id", userID,
		"invocations", len(sel.Invocations),
		"structured", reply.StructuredResponse != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

// structured formats the first successful result.
func (e *Engine) structured(ctx context.Context, results []flow.Result) *format.Structured {
	for _, r := range results {
		if !r.Success {
			continue
		}
		s, err := e.formatter.Format(ctx, r.Name, r.Output)
		if err != nil {
			e.logger.Warn("engine.structured.omitted", "operation", r.Name, "error", err)
			return nil
		}
		return &s
	}
	return nil
}

func (e *Engine) fail(ctx context.Context, cbCtx *CallbackContext, err error, persist bool, turns ...session.Turn) (Reply, error) {
	err = fmt.Errorf("%w: %w", ErrInternal, err)
	e.logger.Error("engine.send.failed", "user_id", cbCtx.UserID, "error", err)
	if persist {
		e.turns.Write(turns...)
	}
	cbCtx.Err = err
	e.observe(ctx, CallbackOnError, cbCtx)
	return Reply{Reply: ErrorReply}, err
}

// observe runs informational callbacks; their errors are logged only.
func (e *Engine) observe(ctx context.Context, t CallbackType, cbCtx *CallbackContext) {
	if err := e.callbacks.ExecuteCallbacks(ctx, t, cbCtx); err != nil {
		e.logger.Warn("engine.callback.failed", "type", t, "error", err)
	}
}

func (e *Engine) turn(userID, role, content string) session.Turn {
	t := session.NewTurn(userID, role, content)
	t.CreatedAt = e.now().UTC()
	return t
}

func optionalData(results []flow.Result) map[string]any {
	data := make(map[string]any, len(results)+1)
	list := make([]map[string]any, len(results))
	for i, r := range results {
		entry := map[string]any{
			"invocation_id": r.InvocationID,
			"operation":     r.Name,
			"success":       r.Success,
		}
		if r.Success {
			entry["output"] = r.Output
		} else {
			entry["error"] = r.Error
		}
		list[i] = entry
		data[r.InvocationID] = r
	}
	data["results"] = list
	return data
}
