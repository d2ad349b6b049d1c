package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

var monthNames = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

// EventBridge numbers weekdays 1 (SUN) through 7 (SAT); cronexpr uses 0 through 6.
var weekdayNames = map[string]int{
	"SUN": 1, "MON": 2, "TUE": 3, "WED": 4, "THU": 5, "FRI": 6, "SAT": 7,
}

// months rewrites month names as numbers. Unknown tokens pass through for
// cronexpr to reject.
func months(raw string) string {
	return mapValues(raw, "", func(tok string) string {
		if v, ok := monthNames[strings.ToUpper(tok)]; ok {
			return strconv.Itoa(v)
		}
		return tok
	})
}

// weekdays rewrites an EventBridge day-of-week field in cronexpr numbering.
// "L" alone is the last day of the week; "nL" and "n#k" keep their suffix.
func weekdays(raw string) (string, error) {
	if strings.EqualFold(raw, "L") {
		return "6", nil
	}
	var bad error
	out := mapValues(raw, "#L", func(tok string) string {
		v, ok := weekdayNames[strings.ToUpper(tok)]
		if !ok {
			n, err := strconv.Atoi(tok)
			if err != nil || n < 1 || n > 7 {
				if bad == nil {
					bad = fmt.Errorf("%w: unsupported token %q in day-of-week field", ErrInvalidExpression, tok)
				}
				return tok
			}
			v = n
		}
		return strconv.Itoa(v - 1)
	})
	return out, bad
}

// mapValues applies fn to every value token of a field, leaving "*", steps
// and any trailing modifier from modifiers in place.
func mapValues(raw, modifiers string, fn func(string) string) string {
	parts := strings.Split(raw, ",")
	for i, part := range parts {
		rangePart, step, hasStep := strings.Cut(part, "/")

		suffix := ""
		if j := strings.IndexAny(rangePart, modifiers); modifiers != "" && j > 0 {
			rangePart, suffix = rangePart[:j], rangePart[j:]
		}

		if rangePart != "*" {
			lo, hi, isRange := strings.Cut(rangePart, "-")
			if isRange {
				rangePart = fn(lo) + "-" + fn(hi)
			} else {
				rangePart = fn(lo)
			}
		}

		parts[i] = rangePart + suffix
		if hasStep {
			parts[i] += "/" + step
		}
	}
	return strings.Join(parts, ",")
}

// checkShape rejects zero or non-numeric steps and numeric ranges that run
// backwards, in any field.
func checkShape(name, raw string) error {
	for _, part := range strings.Split(raw, ",") {
		rangePart, step, hasStep := strings.Cut(part, "/")
		if hasStep {
			if n, err := strconv.Atoi(step); err != nil || n <= 0 {
				return fmt.Errorf("%w: bad step %q in %s field", ErrInvalidExpression, step, name)
			}
		}
		lo, hi, isRange := strings.Cut(rangePart, "-")
		if !isRange {
			continue
		}
		a, errA := strconv.Atoi(lo)
		b, errB := strconv.Atoi(hi)
		if errA == nil && errB == nil && a > b {
			return fmt.Errorf("%w: descending range %q in %s field", ErrInvalidExpression, rangePart, name)
		}
	}
	return nil
}
