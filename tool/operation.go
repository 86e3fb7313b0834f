package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/taskmesh/task"
)

// Operation is a decoded invocation: one concrete struct per catalog entry.
// The set is closed; only this package can add members.
type Operation interface {
	// Name returns the catalog name.
	Name() string
	// Dispatch calls the Handler method matching the concrete operation.
	Dispatch(ctx context.Context, h Handler) (any, error)
	isOperation()
}

// Handler executes operations. It has exactly one method per operation so
// every implementation is exhaustive by construction.
type Handler interface {
	CreateTask(ctx context.Context, op CreateTask) (any, error)
	ListTasks(ctx context.Context, op ListTasks) (any, error)
	UpdateTask(ctx context.Context, op UpdateTask) (any, error)
	DeleteTask(ctx context.Context, op DeleteTask) (any, error)
	CheckDeadlineRisk(ctx context.Context, op CheckDeadlineRisk) (any, error)
	ScorePriorities(ctx context.Context, op ScorePriorities) (any, error)
	BulkUpdateTasks(ctx context.Context, op BulkUpdateTasks) (any, error)
	GenerateDailyBrief(ctx context.Context, op GenerateDailyBrief) (any, error)
	UndoLastAction(ctx context.Context, op UndoLastAction) (any, error)
	AskClarification(ctx context.Context, op AskClarification) (any, error)
}

// Decode converts sanitized arguments into the typed operation for name.
// This is the only place operation names are switched on.
func Decode(name string, args map[string]any) (Operation, error) {
	switch name {
	case NameCreateTask:
		return decodeInto[CreateTask](name, args)
	case NameListTasks:
		return decodeInto[ListTasks](name, args)
	case NameUpdateTask:
		return decodeInto[UpdateTask](name, args)
	case NameDeleteTask:
		return decodeInto[DeleteTask](name, args)
	case NameCheckDeadlineRisk:
		return decodeInto[CheckDeadlineRisk](name, args)
	case NameScorePriorities:
		return decodeInto[ScorePriorities](name, args)
	case NameBulkUpdateTasks:
		return decodeInto[BulkUpdateTasks](name, args)
	case NameGenerateDailyBrief:
		return decodeInto[GenerateDailyBrief](name, args)
	case NameUndoLastAction:
		return decodeInto[UndoLastAction](name, args)
	case NameAskClarification:
		return decodeInto[AskClarification](name, args)
	default:
		return nil, ErrUnknownTool
	}
}

func decodeInto[T Operation](name string, args map[string]any) (Operation, error) {
	var op T
	b, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s arguments: %w", name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&op); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", name, err)
	}
	return op, nil
}

// CreateTask inserts a task.
type CreateTask struct {
	Title            string         `json:"title"`
	Description      *string        `json:"description,omitempty"`
	DueDate          *Date          `json:"due_date,omitempty"`
	Priority         *task.Priority `json:"priority,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	EstimatedMinutes *int           `json:"estimated_minutes,omitempty"`
}

// ListTasks queries tasks.
type ListTasks struct {
	Status    *task.Status   `json:"status,omitempty"`
	Priority  *task.Priority `json:"priority,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	DueBefore *Date          `json:"due_before,omitempty"`
	DueAfter  *Date          `json:"due_after,omitempty"`
	OrderBy   *task.OrderBy  `json:"order_by,omitempty"`
	Limit     *int           `json:"limit,omitempty"`
}

// DefaultListLimit applies when ListTasks.Limit is unset.
const DefaultListLimit = 50

// Filter converts the arguments into a store filter.
func (op ListTasks) Filter() task.Filter {
	f := task.Filter{Tags: op.Tags, Limit: DefaultListLimit}
	if op.Status != nil {
		f.Status = *op.Status
	}
	if op.Priority != nil {
		f.Priority = *op.Priority
	}
	if op.DueBefore != nil {
		// A bare date includes the whole day.
		end := op.DueBefore.EndOfRange()
		f.DueBefore = &end
	}
	if op.DueAfter != nil {
		start := op.DueAfter.Time
		f.DueAfter = &start
	}
	if op.OrderBy != nil {
		f.OrderBy = *op.OrderBy
	}
	if op.Limit != nil {
		f.Limit = *op.Limit
	}
	return f
}

// UpdateTask patches one task.
type UpdateTask struct {
	TaskID           int64          `json:"task_id"`
	Title            *string        `json:"title,omitempty"`
	Description      *string        `json:"description,omitempty"`
	DueDate          *Date          `json:"due_date,omitempty"`
	Priority         *task.Priority `json:"priority,omitempty"`
	Status           *task.Status   `json:"status,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	EstimatedMinutes *int           `json:"estimated_minutes,omitempty"`
}

// Patch returns the store patch described by the arguments.
func (op UpdateTask) Patch() task.Patch {
	return task.Patch{
		Content:          op.Title,
		Description:      op.Description,
		DueDate:          op.DueDate.TimePtr(),
		Priority:         op.Priority,
		Status:           op.Status,
		Tags:             op.Tags,
		EstimatedMinutes: op.EstimatedMinutes,
	}
}

// DeleteTask removes one task.
type DeleteTask struct {
	TaskID int64 `json:"task_id"`
}

// CheckDeadlineRisk reports overdue and soon due tasks.
type CheckDeadlineRisk struct {
	ThresholdDays *int `json:"threshold_days,omitempty"`
}

// Threshold returns the requested threshold or the default.
func (op CheckDeadlineRisk) Threshold() int {
	if op.ThresholdDays == nil {
		return task.DefaultRiskThresholdDays
	}
	return *op.ThresholdDays
}

// ScorePriorities ranks open tasks.
type ScorePriorities struct {
	Limit *int `json:"limit,omitempty"`
}

// Max returns the requested limit or the default.
func (op ScorePriorities) Max() int {
	if op.Limit == nil {
		return task.DefaultScoreLimit
	}
	return *op.Limit
}

// BulkChange is one element of BulkUpdateTasks.
type BulkChange struct {
	TaskID   int64          `json:"task_id"`
	Status   *task.Status   `json:"status,omitempty"`
	Priority *task.Priority `json:"priority,omitempty"`
	DueDate  *Date          `json:"due_date,omitempty"`
}

// Patch returns the store patch described by the change.
func (c BulkChange) Patch() task.Patch {
	return task.Patch{Status: c.Status, Priority: c.Priority, DueDate: c.DueDate.TimePtr()}
}

// BulkUpdateTasks applies several changes with partial success semantics.
type BulkUpdateTasks struct {
	Updates []BulkChange `json:"updates"`
}

// GenerateDailyBrief summarizes a day.
type GenerateDailyBrief struct {
	Date *Date `json:"date,omitempty"`
}

// UndoLastAction reverts the newest journaled mutation.
type UndoLastAction struct{}

// AskClarification echoes a follow-up question back to the user.
type AskClarification struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

func (CreateTask) Name() string         { return NameCreateTask }
func (ListTasks) Name() string          { return NameListTasks }
func (UpdateTask) Name() string         { return NameUpdateTask }
func (DeleteTask) Name() string         { return NameDeleteTask }
func (CheckDeadlineRisk) Name() string  { return NameCheckDeadlineRisk }
func (ScorePriorities) Name() string    { return NameScorePriorities }
func (BulkUpdateTasks) Name() string    { return NameBulkUpdateTasks }
func (GenerateDailyBrief) Name() string { return NameGenerateDailyBrief }
func (UndoLastAction) Name() string     { return NameUndoLastAction }
func (AskClarification) Name() string   { return NameAskClarification }

func (op CreateTask) Dispatch(ctx context.Context, h Handler) (any, error) {
	return h.CreateTask(ctx, op)
}

func (op ListTasks) Dispatch(ctx context.Context, h Handler) (any, error) {
	return h.ListTasks(ctx, op)
}

func (op UpdateTask) Dispatch(ctx context.Context, h Handler) (any, error) {
	return h.UpdateTask(ctx, op)
}

func (op DeleteTask) Dispatch(ctx context.Context, h Handler) (any, error) {
	return h.DeleteTask(ctx, op)
}

func (op CheckDeadlineRisk) Dispatch(ctx context.Context, h Handler) (any, error) {
	return h.CheckDeadlineRisk(ctx, op)
}

func (op ScorePriorities) Dispatch(ctx context.Context, h Handler) (any, error) {
	return h.ScorePriorities(ctx, op)
}

func (op BulkUpdateTasks) Dispatch(ctx context.Context, h Handler) (any, error) {
	return h.BulkUpdateTasks(ctx, op)
}

func (op GenerateDailyBrief) Dispatch(ctx context.Context, h Handler) (any, error) {
	return h.GenerateDailyBrief(ctx, op)
}

func (op UndoLastAction) Dispatch(ctx context.Context, h Handler) (any, error) {
	return h.UndoLastAction(ctx, op)
}

func (op AskClarification) Dispatch(ctx context.Context, h Handler) (any, error) {
	return h.AskClarification(ctx, op)
}

func (CreateTask) isOperation()         {}
func (ListTasks) isOperation()          {}
func (UpdateTask) isOperation()         {}
func (DeleteTask) isOperation()         {}
func (CheckDeadlineRisk) isOperation()  {}
func (ScorePriorities) isOperation()    {}
func (BulkUpdateTasks) isOperation()    {}
func (GenerateDailyBrief) isOperation() {}
func (UndoLastAction) isOperation()     {}
func (AskClarification) isOperation()   {}

// Date is an argument timestamp accepting the formats allowed by
// DatePattern. Values without an offset are interpreted as UTC.
type Date struct {
	time.Time
	// DateOnly is set when the input carried no time of day.
	DateOnly bool
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseDate parses s as an argument date.
func ParseDate(s string) (Date, error) {
	if t, err := time.ParseInLocation(time.DateOnly, s, time.UTC); err == nil {
		return Date{Time: t, DateOnly: true}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.DateOnly {
		return json.Marshal(d.Format(time.DateOnly))
	}
	return json.Marshal(d.Format(time.RFC3339))
}

// TimePtr returns nil for a nil receiver, otherwise a copy of the time.
func (d *Date) TimePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// EndOfRange returns the last instant the value denotes: the end of the day
// for bare dates, the instant itself otherwise.
func (d Date) EndOfRange() time.Time {
	if d.DateOnly {
		return d.Add(24*time.Hour - time.Nanosecond)
	}
	return d.Time
}
