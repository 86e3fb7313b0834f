package engine

import (
	"context"
	"sync"

	"github.com/hupe1980/taskmesh/flow"
	"github.com/hupe1980/taskmesh/logging"
)

// CallbackType defines the lifecycle point a callback runs at.
type CallbackType string

const (
	// CallbackBeforeMessage runs after input validation and user
	// resolution, before any model call. An error aborts the request.
	CallbackBeforeMessage CallbackType = "before_message"

	// CallbackAfterSelect runs once the model has selected operations.
	CallbackAfterSelect CallbackType = "after_select"

	// CallbackAfterExecute runs after all invocations finished.
	CallbackAfterExecute CallbackType = "after_execute"

	// CallbackAfterReply runs once the reply is ready, before it is returned.
	CallbackAfterReply CallbackType = "after_reply"

	// CallbackOnError runs when a request fails with ErrInternal.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext carries the request state visible to callbacks. Fields
// are populated as the request progresses.
type CallbackContext struct {
	CallbackType CallbackType
	UserID       string
	Message      string
	Selection    *flow.Selection
	Results      []flow.Result
	Reply        *Reply
	Err          error
	// Metadata is scratch space shared by the callbacks of one request.
	Metadata map[string]any
}

// Callback is a lifecycle hook.
type Callback interface {
	Type() CallbackType
	Execute(ctx context.Context, cbCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback.
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, cbCtx *CallbackContext) error
}

// NewFunctionCallback creates a function based callback.
func NewFunctionCallback(callbackType CallbackType, fn func(ctx context.Context, cbCtx *CallbackContext) error) *FunctionCallback {
	return &FunctionCallback{callbackType: callbackType, fn: fn}
}

// Type implements Callback.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute implements Callback.
func (c *FunctionCallback) Execute(ctx context.Context, cbCtx *CallbackContext) error {
	return c.fn(ctx, cbCtx)
}

// CallbackManager holds callbacks by type. Registration and execution are
// safe for concurrent use.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{callbacks: make(map[CallbackType][]Callback)}
}

// RegisterCallback adds cb. Callbacks of one type run in registration order.
func (cm *CallbackManager) RegisterCallback(cb Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks[cb.Type()] = append(cm.callbacks[cb.Type()], cb)
}

// ExecuteCallbacks runs the callbacks registered for callbackType and stops
// at the first error.
func (cm *CallbackManager) ExecuteCallbacks(ctx context.Context, callbackType CallbackType, cbCtx *CallbackContext) error {
	cm.mu.RLock()
	callbacks := cm.callbacks[callbackType]
	cm.mu.RUnlock()

	cbCtx.CallbackType = callbackType
	for _, cb := range callbacks {
		if err := cb.Execute(ctx, cbCtx); err != nil {
			return err
		}
	}
	return nil
}

// LoggingCallback logs each lifecycle point it is registered for.
type LoggingCallback struct {
	callbackType CallbackType
	logger       logging.Logger
}

// NewLoggingCallback creates a logging callback for callbackType.
func NewLoggingCallback(callbackType CallbackType, logger logging.Logger) *LoggingCallback {
	return &LoggingCallback{callbackType: callbackType, logger: logging.OrNoOp(logger)}
}

// Type implements Callback.
func (c *LoggingCallback) Type() CallbackType { return c.callbackType }

// Execute implements Callback.
func (c *LoggingCallback) Execute(_ context.Context, cbCtx *CallbackContext) error {
	kv := []any{"user_id", cbCtx.UserID}
	if cbCtx.Selection != nil {
		kv = append(kv, "invocations", len(cbCtx.Selection.Invocations))
	}
	if cbCtx.Results != nil {
		kv = append(kv, "results", len(cbCtx.Results))
	}
	if cbCtx.Err != nil {
		kv = append(kv, "error", cbCtx.Err)
	}
	c.logger.Info("engine.callback."+string(c.callbackType), kv...)
	return nil
}
