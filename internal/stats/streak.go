package stats

import (
	"sort"
	"time"
)

// day truncates t to its calendar date in loc, returned as midnight UTC so dates
// compare with == and step with AddDate.
func day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ComputeStreak counts consecutive calendar days with at least one entry, ending today
// or yesterday. A most recent day of yesterday starts the streak at 1 and the walk
// continues from two days ago; anything older yields 0.
func ComputeStreak(times []time.Time, now time.Time, loc *time.Location) int {
	if len(times) == 0 {
		return 0
	}
	seen := make(map[time.Time]bool, len(times))
	dates := make([]time.Time, 0, len(times))
	for _, t := range times {
		d := day(t, loc)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	today := day(now, loc)
	var expect time.Time
	switch dates[0] {
	case today:
		expect = today.AddDate(0, 0, -1)
	case today.AddDate(0, 0, -1):
		expect = today.AddDate(0, 0, -2)
	default:
		return 0
	}

	streak := 1
	for _, d := range dates[1:] {
		if d != expect {
			break
		}
		streak++
		expect = expect.AddDate(0, 0, -1)
	}
	return streak
}

// ThisWeek counts rows, duplicates included, dated on or after the most recent Monday.
func ThisWeek(times []time.Time, now time.Time, loc *time.Location) int {
	today := day(now, loc)
	offset := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -offset)
	n := 0
	for _, t := range times {
		if !day(t, loc).Before(monday) {
			n++
		}
	}
	return n
}
