// Package ingest reads studio CSV exports into session records. Column
// order varies between booking systems, so headers are matched against a
// synonym table rather than by position. Bad rows are counted and skipped,
// never fatal: the dashboard renders whatever parses.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/fitPulse/pkg/session"
)

// Date layouts seen in studio exports, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Header synonyms per field. Comparison is on lowercased headers with
// spaces, underscores, and dashes removed.
var columnSynonyms = map[string][]string{
	"session_id": {"sessionid", "id", "bookingid"},
	"date":       {"date", "classdate", "sessiondate"},
	"day":        {"day", "weekday", "dayofweek"},
	"time":       {"time", "classtime", "starttime"},
	"class":      {"classname", "class", "cleanedclass", "name"},
	"class_type": {"classtype", "type", "category"},
	"trainer":    {"trainername", "trainer", "instructor", "teacher"},
	"location":   {"location", "studio", "site", "branch"},
	"capacity":   {"capacity", "totalcapacity", "spots"},
	"checked_in": {"checkedin", "checkedincount", "attendance", "attended"},
	"booked":     {"booked", "bookedcount", "bookings"},
	"cancelled":  {"latecancelled", "latecancelledcount", "latecancels", "cancelled"},
	"waitlisted": {"waitlisted", "waitlistedcount", "waitlist"},
	"non_paid":   {"nonpaid", "nonpaidcustomers", "comped", "complimentary"},
	"revenue":    {"totalpaid", "revenue", "paid", "amount"},
	"duration":   {"duration", "durationminutes", "length"},
}

// SkipCounts tallies rows excluded during ingestion, by reason.
type SkipCounts struct {
	MissingDate  int
	BadDate      int
	MissingClass int
}

// Total returns the number of rows excluded for any reason.
func (s SkipCounts) Total() int {
	return s.MissingDate + s.BadDate + s.MissingClass
}

// Reader ingests CSV session exports.
type Reader struct {
	logger *slog.Logger
}

// New creates a Reader logging through the given logger.
func New(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// Read parses an entire CSV stream into session records. The first row must
// be a header. Rows that cannot produce a dated, named session are counted
// and dropped; numeric fields that fail to parse coerce to zero. Only I/O
// and CSV-structure failures return an error.
func (r *Reader) Read(src io.Reader) ([]session.Record, SkipCounts, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1 // exports pad rows inconsistently
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, SkipCounts{}, fmt.Errorf("reading CSV header: %w", err)
	}
	cols := mapColumns(header)
	if _, ok := cols["date"]; !ok {
		return nil, SkipCounts{}, fmt.Errorf("CSV header has no recognizable date column: %v", header)
	}

	var (
		records []session.Record
		skips   SkipCounts
		rowNum  int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skips, fmt.Errorf("reading CSV row %d: %w", rowNum+2, err)
		}
		rowNum++

		rec, reason := r.parseRow(row, cols, rowNum)
		switch reason {
		case "":
			records = append(records, rec)
		case "missing_date":
			skips.MissingDate++
		case "bad_date":
			skips.BadDate++
		case "missing_class":
			skips.MissingClass++
		}
	}

	r.logger.Info("CSV ingestion complete",
		"rows", rowNum,
		"records", len(records),
		"skipped", skips.Total())
	return records, skips, nil
}

// parseRow converts one CSV row. An empty reason means success.
func (r *Reader) parseRow(row []string, cols map[string]int, rowNum int) (session.Record, string) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	rawDate := field("date")
	if rawDate == "" {
		return session.Record{}, "missing_date"
	}
	date, ok := parseDate(rawDate)
	if !ok {
		r.logger.Debug("skipping row with unparseable date", "row", rowNum, "date", rawDate)
		return session.Record{}, "bad_date"
	}

	className := field("class")
	if className == "" {
		return session.Record{}, "missing_class"
	}

	day := field("day")
	if day == "" {
		day = date.Weekday().String()
	}

	sessionID := field("session_id")
	if sessionID == "" {
		// Exports without an ID column still need a stable per-row identity.
		sessionID = fmt.Sprintf("row-%d", rowNum)
	}

	return session.Record{
		SessionID:       sessionID,
		Date:            date,
		Day:             day,
		Time:            field("time"),
		ClassName:       className,
		ClassType:       field("class_type"),
		TrainerName:     field("trainer"),
		Location:        field("location"),
		Capacity:        coerceInt(field("capacity")),
		CheckedIn:       coerceInt(field("checked_in")),
		Booked:          coerceInt(field("booked")),
		LateCancelled:   coerceInt(field("cancelled")),
		Waitlisted:      coerceInt(field("waitlisted")),
		NonPaid:         coerceInt(field("non_paid")),
		Revenue:         coerceFloat(field("revenue")),
		DurationMinutes: coerceInt(field("duration")),
	}, ""
}

// mapColumns resolves header names to column indexes via the synonym table.
// The first header claiming a field wins.
func mapColumns(header []string) map[string]int {
	cols := make(map[string]int)
	for i, raw := range header {
		name := canonical(raw)
		for field, synonyms := range columnSynonyms {
			if _, taken := cols[field]; taken {
				continue
			}
			for _, syn := range synonyms {
				if name == syn {
					cols[field] = i
					break
				}
			}
		}
	}
	return cols
}

func canonical(header string) string {
	lowered := strings.ToLower(strings.TrimSpace(header))
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return replacer.Replace(lowered)
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// coerceInt treats missing or malformed numbers as zero, clamping negatives.
func coerceInt(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// coerceFloat treats missing or malformed amounts as zero, clamping
// negatives. Currency symbols and thousands separators are stripped.
func coerceFloat(raw string) float64 {
	if raw == "" {
		return 0
	}
	cleaned := strings.TrimLeft(strings.ReplaceAll(raw, ",", ""), "$€£₹ ")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
