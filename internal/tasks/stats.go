package tasks

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/instrumentation"
)

// Stats periods
const (
	PeriodToday   = "today"
	PeriodWeek    = "week"
	PeriodMonth   = "month"
	PeriodYear    = "year"
	PeriodAllTime = "all-time"
)

// Stats groupings
const (
	GroupByCategory = "category"
	GroupByPriority = "priority"
	GroupByDate     = "date"
)

// Periods and GroupBys list the accepted values, for tool schemas.
var (
	Periods  = []string{PeriodToday, PeriodWeek, PeriodMonth, PeriodYear, PeriodAllTime}
	GroupBys = []string{GroupByCategory, GroupByPriority, GroupByDate}
)

// notAvailable marks a metric with no data.
const notAvailable = "N/A"

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "Lunes",
	time.Tuesday:   "Martes",
	time.Wednesday: "Miércoles",
	time.Thursday:  "Jueves",
	time.Friday:    "Viernes",
	time.Saturday:  "Sábado",
	time.Sunday:    "Domingo",
}

// Breakdown counts tasks in one bucket
type Breakdown struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

func (b *Breakdown) add(t *Task) {
	b.Total++
	if t.Completed {
		b.Completed++
	} else {
		b.Pending++
	}
}

// Summary holds the headline counts
type Summary struct {
	TotalTasks     int `json:"totalTasks"`
	CompletedTasks int `json:"completedTasks"`
	PendingTasks   int `json:"pendingTasks"`
	CompletionRate int `json:"completionRate"`
	OverdueTasks   int `json:"overdueTasks"`
}

// Activity counts tasks created and completed since a boundary
type Activity struct {
	Created   int `json:"created"`
	Completed int `json:"completed"`
}

// Timeline is activity for the current day, week and month
type Timeline struct {
	Today     Activity `json:"today"`
	ThisWeek  Activity `json:"thisWeek"`
	ThisMonth Activity `json:"thisMonth"`
}

// Productivity describes completion habits
type Productivity struct {
	CurrentStreak         int    `json:"currentStreak"`
	LongestStreak         int    `json:"longestStreak"`
	AverageCompletionTime string `json:"averageCompletionTime"`
	MostProductiveDay     string `json:"mostProductiveDay"`
}

// Upcoming summarizes pending work with due dates
type Upcoming struct {
	DueToday    int   `json:"dueToday"`
	DueThisWeek int   `json:"dueThisWeek"`
	Next        *Task `json:"next"`
}

// Stats is the productivity bundle returned by GetStats
type Stats struct {
	Period       string               `json:"period"`
	Summary      Summary              `json:"summary"`
	ByPriority   map[string]Breakdown `json:"byPriority"`
	ByCategory   map[string]Breakdown `json:"byCategory"`
	Timeline     Timeline             `json:"timeline"`
	Productivity Productivity         `json:"productivity"`
	Upcoming     Upcoming             `json:"upcoming"`
	GroupBy      string               `json:"groupBy,omitempty"`
	Groups       map[string]Breakdown `json:"groups,omitempty"`
}

// GetStats computes statistics over the owner's live tasks. The summary and
// breakdowns honour period (by creation time); timeline, productivity and
// upcoming always look at every live task.
func (c *Client) GetStats(ctx context.Context, period, groupBy string) (stats *Stats, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationStats)
	defer func() { done(err) }()

	if err := validateStatsArgs(period, groupBy); err != nil {
		return nil, err
	}

	all := []Task{}
	err = c.store.db.SelectContext(ctx, &all, c.store.db.Rebind(`SELECT `+taskColumns+`
FROM tasks WHERE owner_id = ? AND deleted_at IS NULL ORDER BY created_at ASC`), c.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	return ComputeStats(all, c.store.now(), c.store.loc, period, groupBy), nil
}

func validateStatsArgs(period, groupBy string) error {
	switch period {
	case "", PeriodToday, PeriodWeek, PeriodMonth, PeriodYear, PeriodAllTime:
	default:
		return apperrors.Validationf("period", "Periodo inválido %q: usa today, week, month, year o all-time", period)
	}
	switch groupBy {
	case "", GroupByCategory, GroupByPriority, GroupByDate:
	default:
		return apperrors.Validationf("groupBy", "Agrupación inválida %q: usa category, priority o date", groupBy)
	}
	return nil
}

// ComputeStats builds a Stats bundle from already-loaded live tasks.
func ComputeStats(all []Task, now time.Time, loc *time.Location, period, groupBy string) *Stats {
	if loc == nil {
		loc = time.Local
	}
	if period == "" {
		period = PeriodAllTime
	}
	now = now.In(loc)

	today := startOfDay(now)
	week := startOfWeek(now)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	var periodStart time.Time
	switch period {
	case PeriodToday:
		periodStart = today
	case PeriodWeek:
		periodStart = week
	case PeriodMonth:
		periodStart = month
	case PeriodYear:
		periodStart = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
	}

	stats := &Stats{
		Period: period,
		ByPriority: map[string]Breakdown{
			string(PriorityHigh): {}, string(PriorityMedium): {}, string(PriorityLow): {},
		},
		ByCategory: map[string]Breakdown{},
		GroupBy:    groupBy,
	}
	for _, cat := range Categories {
		stats.ByCategory[cat] = Breakdown{}
	}
	if groupBy != "" {
		stats.Groups = map[string]Breakdown{}
	}

	for i := range all {
		t := &all[i]
		if !periodStart.IsZero() && t.CreatedAt.Before(periodStart) {
			continue
		}

		stats.Summary.TotalTasks++
		if t.Completed {
			stats.Summary.CompletedTasks++
		} else if t.DueDate != nil && t.DueDate.Before(now) {
			stats.Summary.OverdueTasks++
		}

		if t.Priority != nil {
			if b, ok := stats.ByPriority[string(*t.Priority)]; ok {
				b.add(t)
				stats.ByPriority[string(*t.Priority)] = b
			}
		}
		cat := string(CategoryOther)
		if t.Category != nil {
			cat = string(*t.Category)
		}
		b := stats.ByCategory[cat]
		b.add(t)
		stats.ByCategory[cat] = b

		if groupBy != "" {
			key := groupKey(t, groupBy, loc)
			g := stats.Groups[key]
			g.add(t)
			stats.Groups[key] = g
		}
	}
	stats.Summary.PendingTasks = stats.Summary.TotalTasks - stats.Summary.CompletedTasks
	if stats.Summary.TotalTasks > 0 {
		stats.Summary.CompletionRate = int(math.Round(float64(stats.Summary.CompletedTasks) / float64(stats.Summary.TotalTasks) * 100))
	}

	stats.Timeline = Timeline{
		Today:     activitySince(all, today),
		ThisWeek:  activitySince(all, week),
		ThisMonth: activitySince(all, month),
	}
	stats.Productivity = productivity(all, now, loc)
	stats.Upcoming = upcoming(all, now, today, week)

	return stats
}

func groupKey(t *Task, groupBy string, loc *time.Location) string {
	switch groupBy {
	case GroupByCategory:
		if t.Category != nil {
			return string(*t.Category)
		}
		return string(CategoryOther)
	case GroupByPriority:
		if t.Priority != nil {
			return string(*t.Priority)
		}
		return "none"
	default:
		return t.CreatedAt.In(loc).Format("2006-01-02")
	}
}

func activitySince(all []Task, since time.Time) Activity {
	var a Activity
	for i := range all {
		t := &all[i]
		if !t.CreatedAt.Before(since) {
			a.Created++
		}
		if t.Completed && !t.UpdatedAt.Before(since) {
			a.Completed++
		}
	}
	return a
}

func productivity(all []Task, now time.Time, loc *time.Location) Productivity {
	p := Productivity{
		AverageCompletionTime: notAvailable,
		MostProductiveDay:     notAvailable,
	}

	var days []time.Time
	seen := map[time.Time]bool{}
	perWeekday := map[time.Weekday]int{}
	var total time.Duration
	var timed int

	for i := range all {
		t := &all[i]
		if !t.Completed {
			continue
		}
		done := t.UpdatedAt.In(loc)
		day := startOfDay(done)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
		perWeekday[done.Weekday()]++

		if !t.UpdatedAt.Equal(t.CreatedAt) {
			total += t.UpdatedAt.Sub(t.CreatedAt)
			timed++
		}
	}

	p.CurrentStreak, p.LongestStreak = streaks(days, startOfDay(now))
	if timed > 0 {
		p.AverageCompletionTime = formatDuration(total / time.Duration(timed))
	}

	best := 0
	for _, wd := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		if perWeekday[wd] > best {
			best = perWeekday[wd]
			p.MostProductiveDay = weekdayNames[wd]
		}
	}

	return p
}

// streaks returns the current and longest runs of consecutive completion
// days. days holds distinct local midnights in any order.
func streaks(days []time.Time, today time.Time) (current, longest int) {
	if len(days) == 0 {
		return 0, 0
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if dayGap(days[i], days[i-1]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	if gap := dayGap(days[0], today); gap == 0 || gap == 1 {
		current = 1
		for i := 1; i < len(days) && dayGap(days[i], days[i-1]) == 1; i++ {
			current++
		}
	}
	return current, longest
}

// dayGap is the number of calendar days from a to b, rounded so that DST
// shifts do not matter.
func dayGap(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

func upcoming(all []Task, now, today, week time.Time) Upcoming {
	tomorrow := today.AddDate(0, 0, 1)
	nextWeek := week.AddDate(0, 0, 7)

	var u Upcoming
	for i := range all {
		t := &all[i]
		if t.Completed || t.DueDate == nil {
			continue
		}
		due := *t.DueDate
		if !due.Before(today) && due.Before(tomorrow) {
			u.DueToday++
		}
		if !due.Before(today) && due.Before(nextWeek) {
			u.DueThisWeek++
		}
		if due.After(now) && (u.Next == nil || due.Before(*u.Next.DueDate)) {
			next := *t
			u.Next = &next
		}
	}
	return u
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	days := minutes / (24 * 60)
	hours := (minutes % (24 * 60)) / 60
	mins := minutes % 60

	var b strings.Builder
	switch {
	case days > 0:
		fmt.Fprintf(&b, "%dd %dh %dm", days, hours, mins)
	case hours > 0:
		fmt.Fprintf(&b, "%dh %dm", hours, mins)
	default:
		fmt.Fprintf(&b, "%dm", mins)
	}
	return b.String()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns local midnight of the Monday starting t's week.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}
