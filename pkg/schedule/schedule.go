// Package schedule models EventBridge cron expressions for the recurring rebuild trigger.
//
// Expressions use the six EventBridge fields: minutes, hours, day-of-month,
// month, day-of-week and year. Exactly one of day-of-month and day-of-week is
// "?". Evaluation is always in UTC, matching EventBridge.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
)

// DefaultExpression rebuilds every three days at midnight UTC.
const DefaultExpression = "cron(0 0 1/3 * ? *)"

var (
	ErrInvalidExpression = errors.New("schedule: invalid cron expression")
	ErrNoOccurrence      = errors.New("schedule: no further occurrence")
)

// Cron holds the raw EventBridge cron fields.
type Cron struct {
	Minutes    string `json:"minutes" yaml:"minutes"`
	Hours      string `json:"hours" yaml:"hours"`
	DayOfMonth string `json:"day_of_month" yaml:"dayOfMonth"`
	Month      string `json:"month" yaml:"month"`
	DayOfWeek  string `json:"day_of_week" yaml:"dayOfWeek"`
	Year       string `json:"year" yaml:"year"`
}

// EveryNDays fires at hour:00 UTC on day 1 of every month and every n days after.
//
// EventBridge restarts the day-of-month step each month, so the gap across a
// month boundary is shorter than n days.
func EveryNDays(n, hour int) Cron {
	return Cron{
		Minutes:    "0",
		Hours:      strconv.Itoa(hour),
		DayOfMonth: fmt.Sprintf("1/%d", n),
		Month:      "*",
		DayOfWeek:  "?",
		Year:       "*",
	}
}

// Default returns the schedule described by DefaultExpression.
func Default() Cron {
	return EveryNDays(3, 0)
}

// Expression renders c as an EventBridge schedule expression.
func (c Cron) Expression() string {
	return fmt.Sprintf("cron(%s %s %s %s %s %s)", c.Minutes, c.Hours, c.DayOfMonth, c.Month, c.DayOfWeek, c.Year)
}

func (c Cron) String() string {
	return c.Expression()
}

// Parse reads "cron(m h dom mon dow y)" or the bare six fields.
func Parse(expr string) (Cron, error) {
	body := strings.TrimSpace(expr)
	if strings.HasPrefix(body, "cron(") {
		if !strings.HasSuffix(body, ")") {
			return Cron{}, fmt.Errorf("%w: unbalanced parentheses in %q", ErrInvalidExpression, expr)
		}
		body = strings.TrimSuffix(strings.TrimPrefix(body, "cron("), ")")
	}
	fields := strings.Fields(body)
	if len(fields) != 6 {
		return Cron{}, fmt.Errorf("%w: expected 6 fields, got %d in %q", ErrInvalidExpression, len(fields), expr)
	}
	c := Cron{
		Minutes:    fields[0],
		Hours:      fields[1],
		DayOfMonth: fields[2],
		Month:      fields[3],
		DayOfWeek:  fields[4],
		Year:       fields[5],
	}
	if err := c.Validate(); err != nil {
		return Cron{}, err
	}
	return c, nil
}

// Validate reports whether every field parses and the day fields are exclusive.
func (c Cron) Validate() error {
	_, err := c.compile()
	return err
}

// Next returns the first occurrence strictly after the given instant.
func (c Cron) Next(after time.Time) (time.Time, error) {
	expr, err := c.compile()
	if err != nil {
		return time.Time{}, err
	}
	return next(expr, after.UTC())
}

// Upcoming returns the next n occurrences strictly after the given instant.
func (c Cron) Upcoming(after time.Time, n int) ([]time.Time, error) {
	expr, err := c.compile()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	out := make([]time.Time, 0, n)
	cursor := after.UTC()
	for len(out) < n {
		t, err := next(expr, cursor)
		if err != nil {
			return out, err
		}
		out = append(out, t)
		cursor = t
	}
	return out, nil
}

func next(expr *cronexpr.Expression, after time.Time) (time.Time, error) {
	t := expr.Next(after)
	if t.IsZero() {
		return time.Time{}, ErrNoOccurrence
	}
	return t, nil
}

// compile checks the EventBridge-only rules, then hands the expression to
// cronexpr in its six-field minutes..year form.
func (c Cron) compile() (*cronexpr.Expression, error) {
	domAny := c.DayOfMonth == "?"
	dowAny := c.DayOfWeek == "?"
	if domAny == dowAny {
		return nil, fmt.Errorf("%w: exactly one of day-of-month and day-of-week must be '?'", ErrInvalidExpression)
	}

	fields := []struct {
		name, raw string
	}{
		{"minutes", c.Minutes},
		{"hours", c.Hours},
		{"day-of-month", c.DayOfMonth},
		{"month", c.Month},
		{"day-of-week", c.DayOfWeek},
		{"year", c.Year},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.raw) == "" || strings.ContainsAny(f.raw, " \t") {
			return nil, fmt.Errorf("%w: bad %s field %q", ErrInvalidExpression, f.name, f.raw)
		}
		if err := checkShape(f.name, f.raw); err != nil {
			return nil, err
		}
	}

	dow := c.DayOfWeek
	if !dowAny {
		var err error
		if dow, err = weekdays(dow); err != nil {
			return nil, err
		}
	}
	line := strings.Join([]string{c.Minutes, c.Hours, c.DayOfMonth, months(c.Month), dow, c.Year}, " ")

	expr, err := cronexpr.Parse(strings.ToLower(line))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidExpression, c.Expression(), err)
	}
	return expr, nil
}
