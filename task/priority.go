package task

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// DefaultScoreLimit caps the number of scores returned when none is given.
const DefaultScoreLimit = 10

// Score is the computed priority score of one open task.
type Score struct {
	ID       int64    `json:"id"`
	Content  string   `json:"content"`
	Priority Priority `json:"priority"`
	Score    int      `json:"score"`
	Reasons  []string `json:"reasons"`
}

// ScoreTask computes the score of a single task at time now:
//
//	priority weight * 10
//	+ urgency: overdue 40, due within 1 day 30, 3 days 20, 7 days 10
//	+ staleness: 1 per full week since creation, at most 10
func ScoreTask(t Task, now time.Time) Score {
	s := Score{ID: t.ID, Content: t.Content, Priority: t.Priority, Reasons: []string{}}

	s.Score += t.Priority.Weight() * 10
	s.Reasons = append(s.Reasons, fmt.Sprintf("%s priority", t.Priority))

	if t.DueDate != nil {
		d := DaysUntilDue(*t.DueDate, now)
		switch {
		case d < 0:
			s.Score += 40
			s.Reasons = append(s.Reasons, fmt.Sprintf("overdue by %d day(s)", -d))
		case d <= 1:
			s.Score += 30
			s.Reasons = append(s.Reasons, "due within a day")
		case d <= 3:
			s.Score += 20
			s.Reasons = append(s.Reasons, "due within 3 days")
		case d <= 7:
			s.Score += 10
			s.Reasons = append(s.Reasons, "due within a week")
		}
	}

	if !t.CreatedAt.IsZero() && now.After(t.CreatedAt) {
		weeks := int(now.Sub(t.CreatedAt).Hours() / (24 * 7))
		if weeks > 10 {
			weeks = 10
		}
		if weeks > 0 {
			s.Score += weeks
			s.Reasons = append(s.Reasons, fmt.Sprintf("open for %d week(s)", weeks))
		}
	}
	return s
}

// ScorePriorities scores all open tasks and returns the top limit entries
// ordered by descending score, ties broken by id.
func ScorePriorities(tasks []Task, now time.Time, limit int) []Score {
	if limit <= 0 {
		limit = DefaultScoreLimit
	}
	scores := make([]Score, 0, len(tasks))
	for _, t := range tasks {
		if t.Open() {
			scores = append(scores, ScoreTask(t, now))
		}
	}
	slices.SortStableFunc(scores, func(a, b Score) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}
