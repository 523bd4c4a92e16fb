package ingest

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestReadBasic(t *testing.T) {
	csv := strings.Join([]string{
		"Session ID,Date,Time,Class Name,Trainer Name,Location,Capacity,Checked In,Booked,Late Cancelled,Waitlisted,Non Paid,Total Paid",
		"s1,2025-06-09,18:00:00,Barre 57,Anisha,Bandra,20,18,20,1,2,0,9000",
		"s2,2025-06-10,9:30 AM,PowerCycle,Rohan,Juhu,15,5,8,3,0,1,2500",
	}, "\n")

	records, skips, err := New(discardLogger()).Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if skips.Total() != 0 {
		t.Fatalf("skips = %+v, want none", skips)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	r := records[0]
	if r.SessionID != "s1" || r.ClassName != "Barre 57" || r.TrainerName != "Anisha" || r.Location != "Bandra" {
		t.Errorf("unexpected record: %+v", r)
	}
	if !r.Date.Equal(time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v, want 2025-06-09", r.Date)
	}
	if r.Day != "Monday" {
		t.Errorf("derived Day = %q, want Monday", r.Day)
	}
	if r.Capacity != 20 || r.CheckedIn != 18 || r.Booked != 20 || r.LateCancelled != 1 || r.Waitlisted != 2 {
		t.Errorf("counts wrong: %+v", r)
	}
	if r.Revenue != 9000 {
		t.Errorf("Revenue = %v, want 9000", r.Revenue)
	}
}

func TestReadHeaderSynonyms(t *testing.T) {
	// A different booking system's export: same data, different headers.
	csv := strings.Join([]string{
		"date,start_time,class,instructor,studio,spots,attendance,revenue",
		"2025-06-09,18:00,Barre,Anisha,Bandra,20,18,9000.50",
	}, "\n")

	records, _, err := New(discardLogger()).Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.Time != "18:00" || r.ClassName != "Barre" || r.TrainerName != "Anisha" ||
		r.Location != "Bandra" || r.Capacity != 20 || r.CheckedIn != 18 {
		t.Errorf("synonym mapping failed: %+v", r)
	}
	if r.Revenue != 9000.50 {
		t.Errorf("Revenue = %v, want 9000.50", r.Revenue)
	}
}

func TestReadSkipReasons(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Time,Class Name,Capacity",
		"2025-06-09,18:00,Barre,20",
		",18:00,Barre,20",           // missing date
		"not-a-date,18:00,Barre,20", // bad date
		"2025-06-10,18:00,,20",      // missing class
	}, "\n")

	records, skips, err := New(discardLogger()).Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
	if skips.MissingDate != 1 || skips.BadDate != 1 || skips.MissingClass != 1 {
		t.Errorf("skips = %+v, want 1/1/1", skips)
	}
	if skips.Total() != 3 {
		t.Errorf("Total() = %d, want 3", skips.Total())
	}
}

func TestReadNumericCoercion(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Time,Class Name,Capacity,Checked In,Total Paid",
		"2025-06-09,18:00,Barre,twenty,-3,\"$1,200.50\"",
	}, "\n")

	records, _, err := New(discardLogger()).Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	r := records[0]
	if r.Capacity != 0 {
		t.Errorf("non-numeric capacity = %d, want 0", r.Capacity)
	}
	if r.CheckedIn != 0 {
		t.Errorf("negative checked-in = %d, want 0", r.CheckedIn)
	}
	if r.Revenue != 1200.50 {
		t.Errorf("Revenue = %v, want 1200.50", r.Revenue)
	}
}

func TestReadMissingIDGetsRowIdentity(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Time,Class Name",
		"2025-06-09,18:00,Barre",
		"2025-06-09,19:00,Barre",
	}, "\n")

	records, _, err := New(discardLogger()).Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if records[0].SessionID == records[1].SessionID {
		t.Errorf("generated IDs collide: %q", records[0].SessionID)
	}
}

func TestReadNoDateColumn(t *testing.T) {
	csv := "Time,Class Name\n18:00,Barre\n"
	if _, _, err := New(discardLogger()).Read(strings.NewReader(csv)); err == nil {
		t.Error("Read() without a date column should fail")
	}
}

func TestReadRaggedRows(t *testing.T) {
	// Short rows coerce missing trailing fields to zero values.
	csv := strings.Join([]string{
		"Date,Time,Class Name,Capacity,Checked In",
		"2025-06-09,18:00,Barre",
	}, "\n")

	records, skips, err := New(discardLogger()).Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if skips.Total() != 0 || len(records) != 1 {
		t.Fatalf("records=%d skips=%+v, want 1 record no skips", len(records), skips)
	}
	if records[0].Capacity != 0 || records[0].CheckedIn != 0 {
		t.Errorf("missing fields should be zero: %+v", records[0])
	}
}
