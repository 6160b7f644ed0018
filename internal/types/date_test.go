package types

import (
	"strings"
	"testing"
	"time"
)

func TestNextDueDate_DayAndWeek(t *testing.T) {
	tests := []struct {
		name      string
		from      time.Time
		anchorDay int
		unit      BillingIntervalUnit
		count     int
		want      time.Time
		wantErr   bool
		errMsg    string
	}{
		{
			name:      "simple 10 days",
			from:      time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			anchorDay: 10,
			unit:      BillingIntervalDay,
			count:     10,
			want:      time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "days crossing year boundary",
			from:      time.Date(2024, time.December, 29, 0, 0, 0, 0, time.UTC),
			anchorDay: 29,
			unit:      BillingIntervalDay,
			count:     5,
			want:      time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "two weeks",
			from:      time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			anchorDay: 10,
			unit:      BillingIntervalWeek,
			count:     2,
			want:      time.Date(2024, time.March, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "weeks crossing month boundary",
			from:      time.Date(2024, time.January, 29, 0, 0, 0, 0, time.UTC),
			anchorDay: 29,
			unit:      BillingIntervalWeek,
			count:     1,
			want:      time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "invalid count",
			from:      time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			anchorDay: 10,
			unit:      BillingIntervalDay,
			count:     0,
			wantErr:   true,
			errMsg:    "invalid interval count",
		},
		{
			name:      "invalid unit",
			from:      time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			anchorDay: 10,
			unit:      BillingIntervalUnit("fortnight"),
			count:     1,
			wantErr:   true,
			errMsg:    "invalid billing interval unit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDueDate(tt.from, tt.anchorDay, tt.unit, tt.count)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errMsg)
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextDueDate_Monthly(t *testing.T) {
	tests := []struct {
		name      string
		from      time.Time
		anchorDay int
		count     int
		want      time.Time
	}{
		{
			name:      "simple month",
			from:      time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			anchorDay: 15,
			count:     1,
			want:      time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "31st to leap February",
			from:      time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			anchorDay: 31,
			count:     1,
			want:      time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "31st to common February",
			from:      time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC),
			anchorDay: 31,
			count:     1,
			want:      time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			// the previous occurrence clamped to Feb 29, the anchor day
			// still pulls the schedule back to the 31st
			name:      "anchor restores day after clamped month",
			from:      time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
			anchorDay: 31,
			count:     1,
			want:      time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "anchor 31 to April yields 30",
			from:      time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
			anchorDay: 31,
			count:     1,
			want:      time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "two months crossing year boundary",
			from:      time.Date(2024, time.November, 30, 0, 0, 0, 0, time.UTC),
			anchorDay: 30,
			count:     2,
			want:      time.Date(2025, time.January, 30, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDueDate(tt.from, tt.anchorDay, BillingIntervalMonth, tt.count)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextDueDate_Annual(t *testing.T) {
	tests := []struct {
		name      string
		from      time.Time
		anchorDay int
		count     int
		want      time.Time
	}{
		{
			name:      "simple year",
			from:      time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
			anchorDay: 15,
			count:     1,
			want:      time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "leap day to common year",
			from:      time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
			anchorDay: 29,
			count:     1,
			want:      time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDueDate(tt.from, tt.anchorDay, BillingIntervalYear, tt.count)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateSchedule_AnchorPreservation(t *testing.T) {
	anchor := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	got, err := GenerateSchedule(anchor, 3, BillingIntervalMonth, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), // leap year
		time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
	}
	assertDatesEqual(t, got, want)
}

func TestGenerateSchedule_FixedThreePeriods(t *testing.T) {
	anchor := time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC)
	got, err := GenerateSchedule(anchor, 3, BillingIntervalMonth, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC),
	}
	assertDatesEqual(t, got, want)
}

func TestGenerateSchedule_NoCumulativeDrift(t *testing.T) {
	// twelve monthly periods from a day-31 anchor: every generated date
	// must land on min(31, days in month), not on the day the previous
	// occurrence clamped to
	anchor := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	got, err := GenerateSchedule(anchor, 12, BillingIntervalMonth, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, d := range got {
		wantDay := 31
		if last := lastDayOfMonth(d.Year(), d.Month(), time.UTC); wantDay > last {
			wantDay = last
		}
		if d.Day() != wantDay {
			t.Errorf("period %d: got day %d, want %d (%v)", i, d.Day(), wantDay, d)
		}
	}
}

func TestGenerateSchedule_Weekly(t *testing.T) {
	anchor := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	got, err := GenerateSchedule(anchor, 4, BillingIntervalWeek, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 17, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 24, 0, 0, 0, 0, time.UTC),
	}
	assertDatesEqual(t, got, want)
}

func TestGenerateSchedule_InvalidInput(t *testing.T) {
	anchor := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)

	if _, err := GenerateSchedule(anchor, 0, BillingIntervalMonth, 1); err == nil {
		t.Error("expected error for zero total periods")
	}
	if _, err := GenerateSchedule(anchor, 3, BillingIntervalMonth, 0); err == nil {
		t.Error("expected error for zero interval count")
	}
	if _, err := GenerateSchedule(anchor, 3, BillingIntervalUnit("quarter"), 1); err == nil {
		t.Error("expected error for unknown interval unit")
	}
}

func assertDatesEqual(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d dates, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("date %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
