package tool

import (
	"github.com/hupe1980/taskmesh/schema"
)

// Operation names.
const (
	NameCreateTask         = "create_task"
	NameListTasks          = "list_tasks"
	NameUpdateTask         = "update_task"
	NameDeleteTask         = "delete_task"
	NameCheckDeadlineRisk  = "check_deadline_risk"
	NameScorePriorities    = "score_priorities"
	NameBulkUpdateTasks    = "bulk_update_tasks"
	NameGenerateDailyBrief = "generate_daily_brief"
	NameUndoLastAction     = "undo_last_action"
	NameAskClarification   = "ask_clarification"
)

// DatePattern accepts a calendar date with an optional time and offset.
const DatePattern = `^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}(:\d{2})?(Z|[+-]\d{2}:\d{2})?)?$`

var (
	priorityValues = []any{"low", "medium", "high", "urgent"}
	statusValues   = []any{"todo", "in_progress", "done"}
)

func date(description string) *schema.Schema {
	return schema.String(description).Nullable().Matching(DatePattern)
}

func priority(description string) *schema.Schema {
	return schema.String(description).Nullable().OneOf(priorityValues...)
}

func status(description string) *schema.Schema {
	return schema.String(description).Nullable().OneOf(statusValues...)
}

func taskID() *schema.Schema {
	return schema.Integer("Id of the task, as returned by create_task or list_tasks").AtLeast(1)
}

// Definitions returns the built-in operation definitions in catalog order.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        NameCreateTask,
			Description: "Create a new task for the user. Use when the user asks to add, remember or schedule something.",
			Parameters: schema.Object(map[string]*schema.Schema{
				"title":             schema.String("Short task title").Length(1, 200),
				"description":       schema.String("Longer free-text details").Nullable(),
				"due_date":          date("Due date, YYYY-MM-DD or RFC 3339"),
				"priority":          priority("Task priority"),
				"tags":              schema.Array("Labels for grouping", schema.String("")).Nullable(),
				"estimated_minutes": schema.Integer("Estimated effort in minutes").Nullable().Between(1, 1440),
			}, "title"),
		},
		{
			Name:        NameListTasks,
			Description: "List the user's tasks, optionally filtered by status, priority, tags or due date range.",
			Parameters: schema.Object(map[string]*schema.Schema{
				"status":     status("Only tasks in this status"),
				"priority":   priority("Only tasks with this priority"),
				"tags":       schema.Array("Tasks sharing any of these tags", schema.String("")).Nullable(),
				"due_before": date("Due on or before this date"),
				"due_after":  date("Due on or after this date"),
				"order_by":   schema.String("Sort order").Nullable().OneOf("due_date", "priority", "created_at"),
				"limit":      schema.Integer("Maximum number of tasks").Nullable().Between(1, 100).WithDefault(50),
			}),
		},
		{
			Name:        NameUpdateTask,
			Description: "Change fields of an existing task, including marking it done.",
			Parameters: schema.Object(map[string]*schema.Schema{
				"task_id":           taskID(),
				"title":             schema.String("New title").Nullable().Length(1, 200),
				"description":       schema.String("New description").Nullable(),
				"due_date":          date("New due date"),
				"priority":          priority("New priority"),
				"status":            status("New status"),
				"tags":              schema.Array("Replacement tag set", schema.String("")).Nullable(),
				"estimated_minutes": schema.Integer("New effort estimate in minutes").Nullable().Between(1, 1440),
			}, "task_id"),
		},
		{
			Name:        NameDeleteTask,
			Description: "Delete a task permanently.",
			Parameters: schema.Object(map[string]*schema.Schema{
				"task_id": taskID(),
			}, "task_id"),
		},
		{
			Name:        NameCheckDeadlineRisk,
			Description: "Find open tasks that are overdue or due within the threshold.",
			Parameters: schema.Object(map[string]*schema.Schema{
				"threshold_days": schema.Integer("Days ahead that count as at risk").Nullable().Between(0, 365).WithDefault(7),
			}),
		},
		{
			Name:        NameScorePriorities,
			Description: "Rank open tasks by priority, urgency and age to suggest what to do next.",
			Parameters: schema.Object(map[string]*schema.Schema{
				"limit": schema.Integer("Number of tasks to return").Nullable().Between(1, 50).WithDefault(10),
			}),
		},
		{
			Name:        NameBulkUpdateTasks,
			Description: "Apply status, priority or due date changes to several tasks at once.",
			Parameters: schema.Object(map[string]*schema.Schema{
				"updates": schema.Array("Changes to apply", schema.Object(map[string]*schema.Schema{
					"task_id":  taskID(),
					"status":   status("New status"),
					"priority": priority("New priority"),
					"due_date": date("New due date"),
				}, "task_id")).Count(1, 50),
			}, "updates"),
		},
		{
			Name:        NameGenerateDailyBrief,
			Description: "Summarize the day: tasks due, overdue tasks and top priorities.",
			Parameters: schema.Object(map[string]*schema.Schema{
				"date": date("Day to summarize, defaults to today"),
			}),
		},
		{
			Name:        NameUndoLastAction,
			Description: "Revert the most recent create, update, delete or bulk update.",
			Parameters:  schema.Object(nil),
		},
		{
			Name:        NameAskClarification,
			Description: "Ask the user a follow-up question when the request is ambiguous.",
			Parameters: schema.Object(map[string]*schema.Schema{
				"question": schema.String("Question to ask").Length(1, 500),
				"options":  schema.Array("Suggested answers", schema.String("")).Nullable(),
			}, "question"),
		},
	}
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	return MustCatalog(Definitions()...)
}
