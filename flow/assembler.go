package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/session"
)

// DefaultHistoryWindow is the number of prior turns included in a transcript.
const DefaultHistoryWindow = 30

// DefaultPreamble is rendered per call with DisplayName, Timezone, Now and
// Date.
const DefaultPreamble = `You are a task management assistant{{if .DisplayName}} helping {{.DisplayName}}{{end}}.
The current time is {{.Now}}{{if .Timezone}} ({{.Timezone}}){{end}}; today is {{.Date}}.
Use the available operations to create, list, update, delete and analyze tasks.
Resolve relative dates such as "tomorrow" against the current time and pass dates as YYYY-MM-DD.
When a request is ambiguous, call ask_clarification instead of guessing.`

// AssemblerOptions configures a ContextAssembler.
type AssemblerOptions struct {
	// HistoryWindow caps the number of prior turns. Zero or less means
	// DefaultHistoryWindow.
	HistoryWindow int
	// Preamble is a text/template for the system message.
	Preamble string
	Now      func() time.Time
	Logger   logging.Logger
}

// ContextAssembler builds the model transcript for one message.
type ContextAssembler struct {
	turns session.Store
	opts  AssemblerOptions
}

// NewContextAssembler creates an assembler reading history from turns.
func NewContextAssembler(turns session.Store, optFns ...func(o *AssemblerOptions)) *ContextAssembler {
	opts := AssemblerOptions{
		HistoryWindow: DefaultHistoryWindow,
		Preamble:      DefaultPreamble,
		Now:           time.Now,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &ContextAssembler{turns: turns, opts: opts}
}

// Assemble returns [preamble] ++ [last K turns, oldest first] ++ [message].
// A history read failure is logged and the transcript is built without it.
func (a *ContextAssembler) Assemble(ctx context.Context, userID, message string, profile session.Profile) ([]core.Content, error) {
	preamble, err := a.Preamble(profile)
	if err != nil {
		return nil, err
	}

	contents := []core.Content{core.NewTextContent(core.RoleSystem, preamble)}

	history, err := a.turns.RecentTurns(ctx, userID, a.opts.HistoryWindow)
	if err != nil {
		a.opts.Logger.Warn("flow.context.history.failed", "user_id", userID, "error", err)
		history = nil
	}
	if len(history) > a.opts.HistoryWindow {
		history = history[len(history)-a.opts.HistoryWindow:]
	}
	for _, t := range history {
		contents = append(contents, t.ToContent())
	}

	contents = append(contents, core.NewTextContent(core.RoleUser, message))
	a.opts.Logger.Debug("flow.context.assembled", "user_id", userID, "history", len(history))
	return contents, nil
}

// Preamble renders the system message for profile at the current time.
func (a *ContextAssembler) Preamble(profile session.Profile) (string, error) {
	now := a.opts.Now()
	if profile.Timezone != "" {
		if loc, err := time.LoadLocation(profile.Timezone); err == nil {
			now = now.In(loc)
		}
	}
	out, err := util.RenderTemplate(a.opts.Preamble, map[string]any{
		"DisplayName": profile.DisplayName,
		"Timezone":    profile.Timezone,
		"Now":         now.Format(time.RFC3339),
		"Date":        now.Format(time.DateOnly),
	})
	if err != nil {
		return "", fmt.Errorf("render preamble: %w", err)
	}
	return out, nil
}

// CacheOptions configures a CachedDirectory.
type CacheOptions struct {
	Size int
	TTL  time.Duration
}

// CachedDirectory memoizes registered profiles in an expirable LRU.
// Failures and profiles synthesized by an open directory are never cached,
// so registering the first user closes the directory immediately.
type CachedDirectory struct {
	inner session.Directory
	cache *expirable.LRU[string, session.Profile]
}

// NewCachedDirectory wraps inner with a profile cache.
func NewCachedDirectory(inner session.Directory, optFns ...func(o *CacheOptions)) *CachedDirectory {
	opts := CacheOptions{Size: 1024, TTL: 5 * time.Minute}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Size <= 0 {
		opts.Size = 1024
	}
	return &CachedDirectory{
		inner: inner,
		cache: expirable.NewLRU[string, session.Profile](opts.Size, nil, opts.TTL),
	}
}

// Profile implements session.Directory.
func (d *CachedDirectory) Profile(ctx context.Context, userID string) (session.Profile, error) {
	if p, ok := d.cache.Get(userID); ok {
		return p, nil
	}
	p, err := d.inner.Profile(ctx, userID)
	if err != nil {
		return session.Profile{}, err
	}
	if p.Registered {
		d.cache.Add(userID, p)
	}
	return p, nil
}

// Invalidate drops the cached profile for userID.
func (d *CachedDirectory) Invalidate(userID string) { d.cache.Remove(userID) }
