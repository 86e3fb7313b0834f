package task

import "time"

// DateLayout is the calendar date format used across operations.
const DateLayout = "2006-01-02"

const briefTopPriorities = 3

// Brief summarizes one day of work.
type Brief struct {
	Date           string  `json:"date"`
	DueToday       []Task  `json:"due_today"`
	Overdue        []Task  `json:"overdue"`
	TopPriorities  []Score `json:"top_priorities"`
	OpenCount      int     `json:"open_count"`
	CompletedCount int     `json:"completed_count"`
}

// GenerateBrief builds the brief for the calendar day containing day (in
// day's location). now drives scoring and overdue detection.
func GenerateBrief(tasks []Task, day, now time.Time) Brief {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	b := Brief{
		Date:          start.Format(DateLayout),
		DueToday:      []Task{},
		Overdue:       []Task{},
		TopPriorities: []Score{},
	}
	var open []Task
	for _, t := range tasks {
		if !t.Open() {
			if t.CompletedAt != nil && !t.CompletedAt.Before(start) && t.CompletedAt.Before(end) {
				b.CompletedCount++
			}
			continue
		}
		open = append(open, t)
		if t.DueDate == nil {
			continue
		}
		switch {
		case t.DueDate.Before(start):
			b.Overdue = append(b.Overdue, t)
		case t.DueDate.Before(end):
			b.DueToday = append(b.DueToday, t)
		}
	}
	b.OpenCount = len(open)
	Sort(b.DueToday, OrderByDueDate)
	Sort(b.Overdue, OrderByDueDate)
	b.TopPriorities = append(b.TopPriorities, ScorePriorities(open, now, briefTopPriorities)...)
	return b
}
