package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDefaultExpression(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultExpression, Default().Expression())

	parsed, err := Parse(DefaultExpression)
	require.NoError(t, err)
	require.Equal(t, Default(), parsed)
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{
		"",
		"cron(0 0 1/3 * ? *",
		"cron(0 0 1/3 * *)",
		"cron(0 0 1/3 * MON *)",
		"cron(0 0 ? * ? *)",
		"cron(60 0 1 * ? *)",
		"cron(0 24 1 * ? *)",
		"cron(0 0 0 * ? *)",
		"cron(0 0 1/0 * ? *)",
		"cron(0 0 5-1 * ? *)",
		"cron(0 0 ? * 0 *)",
		"cron(0 0 ? * 8#1 *)",
		"cron(0 0 1 FOO ? *)",
		"rate(3 days)",
	} {
		_, err := Parse(expr)
		require.ErrorIs(t, err, ErrInvalidExpression, expr)
	}
}

func TestNext_EventBridgeModifiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		expr  string
		after time.Time
		want  time.Time
	}{
		// last day of the month
		{"cron(0 0 L * ? *)", time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC), time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)},
		// third Friday
		{"cron(0 9 ? * 6#3 *)", time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC)},
		// weekday nearest the 15th, a Sunday
		{"cron(0 0 15W * ? *)", time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, time.November, 16, 0, 0, 0, 0, time.UTC)},
		// last Friday
		{"cron(0 12 ? * 6L *)", time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC), time.Date(2026, time.October, 30, 12, 0, 0, 0, time.UTC)},
		{"cron(0 8 ? JUL SAT 2027)", time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC), time.Date(2027, time.July, 3, 8, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		c, err := Parse(tc.expr)
		require.NoError(t, err, tc.expr)
		require.Equal(t, tc.expr, c.Expression())

		got, err := c.Next(tc.after)
		require.NoError(t, err, tc.expr)
		require.Equal(t, tc.want, got, tc.expr)
	}
}

func TestNext_EveryThreeDays(t *testing.T) {
	t.Parallel()

	after := time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC)
	got, err := Default().Upcoming(after, 4)
	require.NoError(t, err)
	require.Equal(t, []time.Time{
		time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.February, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.February, 7, 0, 0, 0, 0, time.UTC),
	}, got)
}

func TestNext_IsStrictlyAfter(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
	next, err := Default().Next(at)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC), next)
}

func TestNext_DayOfWeek(t *testing.T) {
	t.Parallel()

	c, err := Parse("cron(30 6 ? * MON-FRI *)")
	require.NoError(t, err)

	// 2026-10-17 is a Saturday.
	next, err := c.Next(time.Date(2026, time.October, 17, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.October, 19, 6, 30, 0, 0, time.UTC), next)
	require.Equal(t, time.Monday, next.Weekday())
}

func TestNext_ConvertsToUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	next, err := Default().Next(time.Date(2026, time.May, 1, 1, 0, 0, 0, loc))
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC), next)
}

func TestNext_ExhaustedYears(t *testing.T) {
	t.Parallel()

	c, err := Parse("cron(0 0 1 1 ? 2020)")
	require.NoError(t, err)
	_, err = c.Next(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrNoOccurrence)
}

func TestEveryNDays_FixedPeriodProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hour := rapid.IntRange(0, 23).Draw(t, "hour")
		offset := rapid.Int64Range(0, 10*365*24*60).Draw(t, "offsetMinutes")
		after := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Minute)

		runs, err := EveryNDays(3, hour).Upcoming(after, 12)
		if err != nil {
			t.Fatalf("Upcoming: %v", err)
		}

		prev := after
		for i, run := range runs {
			if !run.After(prev) {
				t.Fatalf("run %d (%s) not after %s", i, run, prev)
			}
			if run.Hour() != hour || run.Minute() != 0 {
				t.Fatalf("run %d at %s, want %02d:00", i, run, hour)
			}
			if (run.Day()-1)%3 != 0 {
				t.Fatalf("run %d on day %d, want 1 mod 3", i, run.Day())
			}
			if i > 0 {
				gap := run.Sub(runs[i-1])
				sameMonth := run.Month() == runs[i-1].Month()
				if sameMonth && gap != 72*time.Hour {
					t.Fatalf("gap %s within a month, want 72h", gap)
				}
				if gap < 24*time.Hour || gap > 72*time.Hour {
					t.Fatalf("gap %s outside [24h,72h]", gap)
				}
			}
			prev = run
		}
	})
}
