package flow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/task"
	"github.com/hupe1980/taskmesh/tool"
)

// HandlerOptions configures TaskHandler.
type HandlerOptions struct {
	Now    func() time.Time
	Logger logging.Logger
}

// TaskHandler executes operations for one user against a task.Store.
// Mutations are journaled so undo_last_action can revert them.
type TaskHandler struct {
	store  task.Store
	userID string
	opts   HandlerOptions
}

var _ tool.Handler = (*TaskHandler)(nil)

// NewTaskHandler creates a handler bound to userID.
func NewTaskHandler(store task.Store, userID string, optFns ...func(o *HandlerOptions)) *TaskHandler {
	opts := HandlerOptions{Now: time.Now, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &TaskHandler{store: store, userID: userID, opts: opts}
}

// TaskHandlers returns a HandlerFactory producing TaskHandlers over store.
func TaskHandlers(store task.Store, optFns ...func(o *HandlerOptions)) HandlerFactory {
	return func(userID string) tool.Handler {
		return NewTaskHandler(store, userID, optFns...)
	}
}

// TaskOutput is returned by create_task and delete_task.
type TaskOutput struct {
	TaskID int64     `json:"task_id"`
	Task   task.Task `json:"task"`
}

// ListOutput is returned by list_tasks.
type ListOutput struct {
	Count int         `json:"count"`
	Tasks []task.Task `json:"tasks"`
}

// UpdateOutput is returned by update_task.
type UpdateOutput struct {
	TaskID        int64     `json:"task_id"`
	Task          task.Task `json:"task"`
	UpdatedFields []string  `json:"updated_fields"`
}

// ScoreOutput is returned by score_priorities.
type ScoreOutput struct {
	Count  int          `json:"count"`
	Scores []task.Score `json:"scores"`
}

// BulkError reports one failed target of a bulk update.
type BulkError struct {
	TaskID int64  `json:"task_id"`
	Error  string `json:"error"`
}

// BulkOutput is returned by bulk_update_tasks.
type BulkOutput struct {
	SuccessCount int         `json:"success_count"`
	FailedCount  int         `json:"failed_count"`
	Errors       []BulkError `json:"errors"`
	UpdatedIDs   []int64     `json:"updated_ids"`
}

// UndoOutput is returned by undo_last_action. Tasks holds the restored (or,
// for an undone create, removed) rows.
type UndoOutput struct {
	UndoneAction task.Action `json:"undone_action"`
	TaskIDs      []int64     `json:"task_ids"`
	Tasks        []task.Task `json:"tasks"`
}

// ClarificationOutput is returned by ask_clarification.
type ClarificationOutput struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (h *TaskHandler) now() time.Time { return h.opts.Now().UTC() }

// CreateTask implements tool.Handler.
func (h *TaskHandler) CreateTask(ctx context.Context, op tool.CreateTask) (any, error) {
	now := h.now()
	t := task.Task{
		UserID:           h.userID,
		Content:          op.Title,
		DueDate:          op.DueDate.TimePtr(),
		Priority:         task.PriorityMedium,
		Status:           task.StatusTodo,
		Tags:             nonNilTags(op.Tags),
		EstimatedMinutes: op.EstimatedMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if op.Description != nil {
		t.Description = *op.Description
	}
	if op.Priority != nil {
		t.Priority = *op.Priority
	}

	created, err := h.store.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	created = normalize(created)
	h.journal(ctx, task.ActionCreate, nil, []task.Task{created})
	return TaskOutput{TaskID: created.ID, Task: created}, nil
}

// ListTasks implements tool.Handler.
func (h *TaskHandler) ListTasks(ctx context.Context, op tool.ListTasks) (any, error) {
	tasks, err := h.store.List(ctx, h.userID, op.Filter())
	if err != nil {
		return nil, err
	}
	tasks = normalizeAll(tasks)
	return ListOutput{Count: len(tasks), Tasks: tasks}, nil
}

// UpdateTask implements tool.Handler. An empty patch leaves the row (and
// the journal) untouched.
func (h *TaskHandler) UpdateTask(ctx context.Context, op tool.UpdateTask) (any, error) {
	before, err := h.store.Get(ctx, h.userID, op.TaskID)
	if err != nil {
		return nil, err
	}
	patch := op.Patch()
	if patch.Empty() {
		before = normalize(before)
		return UpdateOutput{TaskID: before.ID, Task: before, UpdatedFields: []string{}}, nil
	}

	after, err := h.store.Update(ctx, patch.Apply(before, h.now()))
	if err != nil {
		return nil, err
	}
	after = normalize(after)
	h.journal(ctx, task.ActionUpdate, []task.Task{before}, []task.Task{after})
	return UpdateOutput{TaskID: after.ID, Task: after, UpdatedFields: fieldNames(patch)}, nil
}

// DeleteTask implements tool.Handler.
func (h *TaskHandler) DeleteTask(ctx context.Context, op tool.DeleteTask) (any, error) {
	removed, err := h.store.Delete(ctx, h.userID, op.TaskID)
	if err != nil {
		return nil, err
	}
	removed = normalize(removed)
	h.journal(ctx, task.ActionDelete, []task.Task{removed}, nil)
	return TaskOutput{TaskID: removed.ID, Task: removed}, nil
}

// CheckDeadlineRisk implements tool.Handler.
func (h *TaskHandler) CheckDeadlineRisk(ctx context.Context, op tool.CheckDeadlineRisk) (any, error) {
	tasks, err := h.store.List(ctx, h.userID, task.Filter{})
	if err != nil {
		return nil, err
	}
	return task.AssessDeadlines(tasks, h.now(), op.Threshold()), nil
}

// ScorePriorities implements tool.Handler.
func (h *TaskHandler) ScorePriorities(ctx context.Context, op tool.ScorePriorities) (any, error) {
	tasks, err := h.store.List(ctx, h.userID, task.Filter{})
	if err != nil {
		return nil, err
	}
	scores := task.ScorePriorities(tasks, h.now(), op.Max())
	return ScoreOutput{Count: len(scores), Scores: scores}, nil
}

// BulkUpdateTasks implements tool.Handler. Each change is applied on its
// own; failures are collected and the remaining changes still run. One
// journal entry covers all successful changes.
func (h *TaskHandler) BulkUpdateTasks(ctx context.Context, op tool.BulkUpdateTasks) (any, error) {
	out := BulkOutput{Errors: []BulkError{}, UpdatedIDs: []int64{}}
	var before, after []task.Task

	now := h.now()
	for _, change := range op.Updates {
		prev, updated, err := h.applyChange(ctx, change, now)
		if err != nil {
			out.FailedCount++
			out.Errors = append(out.Errors, BulkError{TaskID: change.TaskID, Error: err.Error()})
			h.opts.Logger.Debug("flow.handler.bulk.failed", "user_id", h.userID, "task_id", change.TaskID, "error", err)
			continue
		}
		out.SuccessCount++
		out.UpdatedIDs = append(out.UpdatedIDs, updated.ID)
		before = append(before, prev)
		after = append(after, updated)
	}

	if len(after) > 0 {
		h.journal(ctx, task.ActionBulkUpdate, before, after)
	}
	return out, nil
}

func (h *TaskHandler) applyChange(ctx context.Context, change tool.BulkChange, now time.Time) (task.Task, task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, task.Task{}, err
	}
	prev, err := h.store.Get(ctx, h.userID, change.TaskID)
	if err != nil {
		return task.Task{}, task.Task{}, err
	}
	updated, err := h.store.Update(ctx, change.Patch().Apply(prev, now))
	if err != nil {
		return task.Task{}, task.Task{}, err
	}
	return prev, updated, nil
}

// GenerateDailyBrief implements tool.Handler.
func (h *TaskHandler) GenerateDailyBrief(ctx context.Context, op tool.GenerateDailyBrief) (any, error) {
	tasks, err := h.store.List(ctx, h.userID, task.Filter{})
	if err != nil {
		return nil, err
	}
	now := h.now()
	day := now
	if op.Date != nil {
		day = op.Date.Time
	}
	b := task.GenerateBrief(tasks, day, now)
	b.DueToday = normalizeAll(b.DueToday)
	b.Overdue = normalizeAll(b.Overdue)
	return b, nil
}

// UndoLastAction implements tool.Handler.
func (h *TaskHandler) UndoLastAction(ctx context.Context, _ tool.UndoLastAction) (any, error) {
	entry, err := h.store.PopJournal(ctx, h.userID)
	if err != nil {
		return nil, err
	}

	touched, err := h.revert(ctx, entry)
	if err != nil {
		// Put the entry back so a retry reverts the same action.
		if jerr := h.store.AppendJournal(ctx, entry); jerr != nil {
			h.opts.Logger.Error("flow.handler.undo.requeue.failed", "user_id", h.userID, "entry_id", entry.ID, "error", jerr)
			return nil, errors.Join(err, jerr)
		}
		return nil, err
	}

	h.opts.Logger.Info("flow.handler.undo", "user_id", h.userID, "action", entry.Action, "tasks", len(touched))
	return UndoOutput{
		UndoneAction: entry.Action,
		TaskIDs:      entry.TaskIDs(),
		Tasks:        normalizeAll(touched),
	}, nil
}

// revert applies the inverse of entry. Deletes of missing rows and restores
// are idempotent, so reverting a partially reverted entry again is safe.
func (h *TaskHandler) revert(ctx context.Context, entry task.JournalEntry) ([]task.Task, error) {
	var touched []task.Task
	switch entry.Action {
	case task.ActionCreate:
		for _, t := range entry.After {
			if _, err := h.store.Delete(ctx, h.userID, t.ID); err != nil && !errors.Is(err, task.ErrNotFound) {
				return nil, fmt.Errorf("undo create of task %d: %w", t.ID, err)
			}
			touched = append(touched, t)
		}
	case task.ActionUpdate, task.ActionBulkUpdate, task.ActionDelete:
		for _, t := range entry.Before {
			if err := h.store.Restore(ctx, t); err != nil {
				return nil, fmt.Errorf("undo %s of task %d: %w", entry.Action, t.ID, err)
			}
			touched = append(touched, t)
		}
	default:
		return nil, fmt.Errorf("cannot undo action %q", entry.Action)
	}
	return touched, nil
}

// AskClarification implements tool.Handler.
func (h *TaskHandler) AskClarification(_ context.Context, op tool.AskClarification) (any, error) {
	return ClarificationOutput{Question: op.Question, Options: nonNilTags(op.Options)}, nil
}

// journal records a reversible action. A failed write is logged; the
// mutation itself already happened and is reported as successful.
func (h *TaskHandler) journal(ctx context.Context, action task.Action, before, after []task.Task) {
	e := task.JournalEntry{
		ID:        core.NewID(),
		UserID:    h.userID,
		Action:    action,
		Before:    before,
		After:     after,
		CreatedAt: h.now(),
	}
	if err := h.store.AppendJournal(ctx, e); err != nil {
		h.opts.Logger.Error("flow.handler.journal.failed", "user_id", h.userID, "action", action, "error", err)
	}
}

// fieldNames reports patched fields using argument names.
func fieldNames(p task.Patch) []string {
	fields := p.Fields()
	for i, f := range fields {
		if f == "content" {
			fields[i] = "title"
		}
	}
	return fields
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return slices.Clone(tags)
}

func normalize(t task.Task) task.Task {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t
}

func normalizeAll(tasks []task.Task) []task.Task {
	out := make([]task.Task, len(tasks))
	for i, t := range tasks {
		out[i] = normalize(t)
	}
	return out
}
