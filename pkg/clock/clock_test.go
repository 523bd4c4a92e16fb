package clock

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Time
		wantErr bool
	}{
		{name: "morning 12-hour", raw: "9:30 AM", want: Time{9, 30}},
		{name: "evening 12-hour", raw: "7:15 PM", want: Time{19, 15}},
		{name: "noon", raw: "12:00 PM", want: Time{12, 0}},
		{name: "midnight", raw: "12:00 AM", want: Time{0, 0}},
		{name: "lowercase meridiem", raw: "6:45 pm", want: Time{18, 45}},
		{name: "meridiem without space", raw: "10:05AM", want: Time{10, 5}},
		{name: "24-hour", raw: "19:15", want: Time{19, 15}},
		{name: "24-hour with seconds", raw: "19:15:00", want: Time{19, 15}},
		{name: "24-hour zero padded", raw: "07:05", want: Time{7, 5}},
		{name: "surrounding whitespace", raw: "  8:00 AM  ", want: Time{8, 0}},
		{name: "minute out of range", raw: "13:99", wantErr: true},
		{name: "hour out of range 24h", raw: "25:00", wantErr: true},
		{name: "hour zero 12-hour", raw: "0:30 AM", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "garbage", raw: "half past nine", wantErr: true},
		{name: "bare number", raw: "930", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %v, want error", tt.raw, got)
				}
				if !errors.Is(err, ErrUnparseable) {
					t.Errorf("Parse(%q) error = %v, want ErrUnparseable", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

// Formatting any in-window time as 12-hour text and re-parsing must round-trip.
func TestParseFormat12RoundTrip(t *testing.T) {
	for hour := DefaultWindow.StartHour; hour < DefaultWindow.EndHour; hour++ {
		for _, minute := range []int{0, 15, 30, 45, 59} {
			orig := Time{Hour: hour, Minute: minute}
			got, err := Parse(orig.Format12())
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", orig.Format12(), err)
			}
			if got != orig {
				t.Errorf("round trip %q = %v, want %v", orig.Format12(), got, orig)
			}
		}
	}
}

func TestMinutes(t *testing.T) {
	if got := (Time{9, 30}).Minutes(); got != 570 {
		t.Errorf("Minutes() = %d, want 570", got)
	}
	if got := (Time{0, 0}).Minutes(); got != 0 {
		t.Errorf("Minutes() = %d, want 0", got)
	}
}

func TestWindowContains(t *testing.T) {
	window := Window{StartHour: 7, EndHour: 22}
	tests := []struct {
		time Time
		want bool
	}{
		{Time{7, 0}, true},
		{Time{21, 59}, true},
		{Time{22, 0}, false},
		{Time{6, 59}, false},
		{Time{0, 0}, false},
	}
	for _, tt := range tests {
		if got := window.Contains(tt.time); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.time, got, tt.want)
		}
	}
}
