package week

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysMondayStart(t *testing.T) {
	tests := []struct {
		name       string
		ref        time.Time
		wantMonday time.Time
	}{
		// 2025-06-11 is a Wednesday.
		{name: "midweek", ref: date(2025, time.June, 11), wantMonday: date(2025, time.June, 9)},
		{name: "monday itself", ref: date(2025, time.June, 9), wantMonday: date(2025, time.June, 9)},
		{name: "sunday belongs to prior monday", ref: date(2025, time.June, 15), wantMonday: date(2025, time.June, 9)},
		{name: "ref with time of day", ref: time.Date(2025, time.June, 11, 18, 30, 0, 0, time.UTC), wantMonday: date(2025, time.June, 9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := Days(tt.ref, StartMonday)
			if !days[0].Equal(tt.wantMonday) {
				t.Fatalf("Days(%v)[0] = %v, want %v", tt.ref, days[0], tt.wantMonday)
			}
			for i := 1; i < 7; i++ {
				if want := tt.wantMonday.AddDate(0, 0, i); !days[i].Equal(want) {
					t.Errorf("Days()[%d] = %v, want %v", i, days[i], want)
				}
			}
			if days[6].Weekday() != time.Sunday {
				t.Errorf("last day = %v, want Sunday", days[6].Weekday())
			}
		})
	}
}

func TestDaysSundayStart(t *testing.T) {
	// 2025-06-11 is a Wednesday; its Sunday-start week begins 2025-06-08.
	days := Days(date(2025, time.June, 11), StartSunday)
	if want := date(2025, time.June, 8); !days[0].Equal(want) {
		t.Fatalf("Days()[0] = %v, want %v", days[0], want)
	}
	if days[0].Weekday() != time.Sunday || days[6].Weekday() != time.Saturday {
		t.Errorf("Sunday-start week runs %v..%v, want Sunday..Saturday", days[0].Weekday(), days[6].Weekday())
	}
}

func TestDayIndex(t *testing.T) {
	days := Days(date(2025, time.June, 11), StartMonday)

	tests := []struct {
		name   string
		date   time.Time
		want   int
		wantOK bool
	}{
		{name: "monday", date: date(2025, time.June, 9), want: 0, wantOK: true},
		{name: "wednesday", date: date(2025, time.June, 11), want: 2, wantOK: true},
		{name: "sunday", date: date(2025, time.June, 15), want: 6, wantOK: true},
		{name: "time of day ignored", date: time.Date(2025, time.June, 13, 23, 59, 0, 0, time.UTC), want: 4, wantOK: true},
		{name: "before window", date: date(2025, time.June, 8), wantOK: false},
		{name: "after window", date: date(2025, time.June, 16), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DayIndex(tt.date, days)
			if ok != tt.wantOK {
				t.Fatalf("DayIndex(%v) ok = %v, want %v", tt.date, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("DayIndex(%v) = %d, want %d", tt.date, got, tt.want)
			}
		})
	}
}
