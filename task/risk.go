package task

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// DefaultRiskThresholdDays is used when no threshold is supplied.
const DefaultRiskThresholdDays = 7

const msPerDay = 86400000.0

// DaysUntilDue returns ceil((due - now) / 1 day) in whole days.
func DaysUntilDue(due, now time.Time) int {
	ms := float64(due.Sub(now).Milliseconds())
	d := int(math.Ceil(ms / msPerDay))
	if d == 0 { // normalize -0
		return 0
	}
	return d
}

// RiskItem is the deadline assessment of one task.
type RiskItem struct {
	ID           int64     `json:"id"`
	Content      string    `json:"content"`
	DueDate      time.Time `json:"due_date"`
	Priority     Priority  `json:"priority"`
	DaysUntilDue int       `json:"days_until_due"`
	AtRisk       bool      `json:"at_risk"`
	Overdue      bool      `json:"overdue"`
}

// AssessDeadline classifies a task with a due date. A task is at risk when
// 0 <= days_until_due <= thresholdDays and overdue when days_until_due < 0.
func AssessDeadline(t Task, now time.Time, thresholdDays int) (RiskItem, bool) {
	if t.DueDate == nil {
		return RiskItem{}, false
	}
	d := DaysUntilDue(*t.DueDate, now)
	return RiskItem{
		ID:           t.ID,
		Content:      t.Content,
		DueDate:      *t.DueDate,
		Priority:     t.Priority,
		DaysUntilDue: d,
		AtRisk:       d >= 0 && d <= thresholdDays,
		Overdue:      d < 0,
	}, true
}

// RiskReport aggregates the assessments of all open, dated tasks that are
// at risk or overdue.
type RiskReport struct {
	ThresholdDays int        `json:"threshold_days"`
	AsOf          time.Time  `json:"as_of"`
	Items         []RiskItem `json:"tasks"`
	AtRiskCount   int        `json:"at_risk_count"`
	OverdueCount  int        `json:"overdue_count"`
}

// AssessDeadlines is a pure function of tasks and now: the same inputs always
// produce the same report. Items are ordered by days until due, then id.
func AssessDeadlines(tasks []Task, now time.Time, thresholdDays int) RiskReport {
	if thresholdDays < 0 {
		thresholdDays = DefaultRiskThresholdDays
	}
	report := RiskReport{ThresholdDays: thresholdDays, AsOf: now, Items: []RiskItem{}}
	for _, t := range tasks {
		if !t.Open() {
			continue
		}
		item, ok := AssessDeadline(t, now, thresholdDays)
		if !ok || (!item.AtRisk && !item.Overdue) {
			continue
		}
		if item.AtRisk {
			report.AtRiskCount++
		}
		if item.Overdue {
			report.OverdueCount++
		}
		report.Items = append(report.Items, item)
	}
	slices.SortStableFunc(report.Items, func(a, b RiskItem) int {
		if a.DaysUntilDue != b.DaysUntilDue {
			return a.DaysUntilDue - b.DaysUntilDue
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return report
}
