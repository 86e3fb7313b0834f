// Package taskmesh wires the conversational task orchestrator from a
// config.Config: an inference provider wrapped with retries, a task and
// conversation store, the structured formatter and a logger. Most callers
// need only New, SendMessage and Close:
//
//	tm, err := taskmesh.New(ctx, func(o *taskmesh.Options) { o.Config = cfg })
//	if err != nil { ... }
//	defer tm.Close()
//	reply, err := tm.SendMessage(ctx, "user-1", "remind me to buy milk tomorrow")
//
// Every collaborator can be overridden through Options; unset ones are built
// from the configuration, whose defaults are safe for local development.
package taskmesh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/engine"
	"github.com/hupe1980/taskmesh/flow"
	"github.com/hupe1980/taskmesh/format"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/memory"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/model/anthropic"
	"github.com/hupe1980/taskmesh/model/gemini"
	"github.com/hupe1980/taskmesh/model/openai"
	"github.com/hupe1980/taskmesh/session"
	"github.com/hupe1980/taskmesh/store/sqlite"
	"github.com/hupe1980/taskmesh/task"
	"github.com/hupe1980/taskmesh/tool"
)

// Options configures a TaskMesh.
type Options struct {
	// Config drives every collaborator left unset below. Nil uses
	// config.Default().
	Config *config.Config

	// Model overrides the configured provider. It is used as is, without
	// the retry wrapper.
	Model model.Model
	// Logger overrides the configured log backend.
	Logger logging.Logger
	// Profiles are registered in the user directory on startup. Once a
	// directory holds a profile, unknown users are rejected.
	Profiles []session.Profile
	// Callbacks observe the request pipeline.
	Callbacks *engine.CallbackManager
	// LogOutput receives slog output; nil writes to stderr.
	LogOutput io.Writer
	Now       func() time.Time
}

// TaskMesh is the assembled orchestrator.
type TaskMesh struct {
	engine  *engine.Engine
	logger  logging.Logger
	closers []func() error
}

// New assembles a TaskMesh.
func New(ctx context.Context, optFns ...func(o *Options)) (*TaskMesh, error) {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tm := &TaskMesh{}
	logger := opts.Logger
	if logger == nil {
		l, sync, err := NewLogger(cfg.Log, opts.LogOutput)
		if err != nil {
			return nil, err
		}
		logger = l
		if sync != nil {
			tm.closers = append(tm.closers, sync)
		}
	}
	tm.logger = logger

	m := opts.Model
	if m == nil {
		var err error
		if m, err = NewModel(ctx, cfg.Provider, logger); err != nil {
			return nil, err
		}
	}

	tasks, turns, directory, closeStore, err := openStore(ctx, cfg.Store, opts, logger)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		tm.closers = append(tm.closers, closeStore)
	}

	formatOpts := func(o *format.Options) {
		o.Logger = logger
		o.Strict = cfg.Format.Strict
	}
	var formatter format.Formatter = format.NewMappingFormatter(formatOpts)
	if cfg.Format.Strategy == "model" {
		formatter = format.NewModelFormatter(m, formatOpts)
	}

	tm.engine = engine.New(m, tasks, func(o *engine.Options) {
		o.Turns = turns
		o.Directory = flow.NewCachedDirectory(directory)
		o.Formatter = formatter
		o.Callbacks = opts.Callbacks
		o.Logger = logger
		o.Now = opts.Now
		o.HistoryWindow = cfg.Conversation.HistoryWindow
		o.MaxParallel = cfg.Executor.MaxParallel
		o.ComposerTemperature = cfg.Composer.Temperature
		o.FallbackReply = cfg.Composer.FallbackReply
	})

	logger.Info("taskmesh.ready",
		"provider", m.Info().Provider,
		"model", m.Info().Name,
		"store", cfg.Store.Driver,
		"format", cfg.Format.Strategy,
	)
	return tm, nil
}

// SendMessage handles one user message. See engine.Engine.SendMessage.
func (t *TaskMesh) SendMessage(ctx context.Context, userID, message string) (engine.Reply, error) {
	return t.engine.SendMessage(ctx, userID, message)
}

// Engine returns the underlying engine.
func (t *TaskMesh) Engine() *engine.Engine { return t.engine }

// Close flushes pending conversation writes and releases the store.
func (t *TaskMesh) Close() error {
	errs := []error{t.engine.Close()}
	for i := len(t.closers) - 1; i >= 0; i-- {
		errs = append(errs, t.closers[i]())
	}
	return errors.Join(errs...)
}

// Operations returns the static catalog metadata in catalog order.
func Operations() []tool.Definition {
	return tool.DefaultCatalog().List()
}

// NewLogger builds the configured logger. The returned sync func is non-nil
// for backends that buffer output.
func NewLogger(cfg config.LogConfig, out io.Writer) (logging.Logger, func() error, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	lc := &logging.LoggerConfig{Level: level, Format: cfg.Format, Output: out, Component: "taskmesh"}
	if cfg.Backend == "zap" {
		z, err := logging.NewZapLogger(lc)
		if err != nil {
			return nil, nil, fmt.Errorf("build zap logger: %w", err)
		}
		return z, func() error {
			// Syncing stderr fails with EINVAL on some platforms.
			_ = z.Sync()
			return nil
		}, nil
	}
	return logging.NewLogger(lc), nil, nil
}

// NewModel builds the configured provider adapter wrapped with per attempt
// timeouts and retries.
func NewModel(ctx context.Context, cfg config.ProviderConfig, logger logging.Logger) (model.Model, error) {
	var inner model.Model
	switch cfg.Name {
	case "openai":
		inner = openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		})
	case "anthropic":
		inner = anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.APIKey = cfg.APIKey
		})
	case "gemini":
		g, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.APIKey = cfg.APIKey
		})
		if err != nil {
			return nil, err
		}
		inner = g
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
	return model.NewRetryModel(inner, func(o *model.RetryOptions) {
		o.MaxAttempts = cfg.MaxRetries
		o.Timeout = cfg.Timeout
		o.Logger = logger
	}), nil
}

func openStore(
	ctx context.Context,
	cfg config.StoreConfig,
	opts Options,
	logger logging.Logger,
) (task.Store, session.Store, session.Directory, func() error, error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.DSN, func(o *sqlite.Options) { o.Logger = logger })
		if err != nil {
			return nil, nil, nil, nil, err
		}
		for _, p := range opts.Profiles {
			if err := s.PutProfile(ctx, p); err != nil {
				_ = s.Close()
				return nil, nil, nil, nil, fmt.Errorf("register profile %q: %w", p.UserID, err)
			}
		}
		return s, s, s, s.Close, nil
	default:
		sessions := session.NewInMemoryStore()
		for _, p := range opts.Profiles {
			sessions.AddProfile(p)
		}
		return memory.NewTaskStore(func(o *memory.Options) {
			o.Now = func() time.Time { return opts.Now().UTC() }
		}), sessions, sessions, nil, nil
	}
}
