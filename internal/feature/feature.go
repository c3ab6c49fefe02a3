// Package feature derives model features from raw trips. The peak-hour
// and weekend definitions here are the single source of truth: training
// and inference both go through them, so the two can never disagree.
package feature

import (
	"sort"
	"time"

	"github.com/rideback/backend/internal/domain"
)

// Row is one trip with engineered features attached.
type Row struct {
	ZoneID     int
	ZoneCode   int
	Hour       int // 0-23
	DayOfWeek  int // 0=Mon .. 6=Sun
	Month      int // 1-12
	IsWeekend  int
	IsPeakHour int
	Passengers int
}

// DemandRow is one aggregated training sample: a unique
// (zone, hour, weekday, month, weekend, peak) combination with its
// booking count.
type DemandRow struct {
	ZoneID     int
	ZoneCode   int
	Hour       int
	DayOfWeek  int
	Month      int
	IsWeekend  int
	IsPeakHour int
	Bookings   int
}

// IsPeakHour reports whether hour falls in a commute window
// (7-10 or 16-20 inclusive).
func IsPeakHour(hour int) bool {
	return (hour >= 7 && hour <= 10) || (hour >= 16 && hour <= 20)
}

// DayOfWeek maps time.Weekday to the 0=Monday convention used by the
// model features.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsWeekend reports whether dayOfWeek (0=Mon) is Saturday or Sunday.
func IsWeekend(dayOfWeek int) bool {
	return dayOfWeek >= 5
}

// TimeFeatures extracts the shared temporal feature set from t.
func TimeFeatures(t time.Time) (hour, dayOfWeek, month, weekend, peak int) {
	hour = t.Hour()
	dayOfWeek = DayOfWeek(t)
	month = int(t.Month())
	if IsWeekend(dayOfWeek) {
		weekend = 1
	}
	if IsPeakHour(hour) {
		peak = 1
	}
	return
}

// ZoneEncoding is a dense re-indexing of zone ids to contiguous codes.
// It is rebuilt from the current trip set each training run; a model is
// only valid with the encoding it was trained with.
type ZoneEncoding struct {
	CodeToZone []int `json:"code_to_zone"`
	zoneToCode map[int]int
}

// NewZoneEncoding builds an encoding from zone ids in sorted order.
// Duplicates are collapsed.
func NewZoneEncoding(zoneIDs []int) *ZoneEncoding {
	seen := make(map[int]bool, len(zoneIDs))
	unique := make([]int, 0, len(zoneIDs))
	for _, id := range zoneIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Ints(unique)

	enc := &ZoneEncoding{CodeToZone: unique}
	enc.buildIndex()
	return enc
}

// buildIndex rebuilds the reverse map, needed after JSON decoding.
func (e *ZoneEncoding) buildIndex() {
	e.zoneToCode = make(map[int]int, len(e.CodeToZone))
	for code, id := range e.CodeToZone {
		e.zoneToCode[id] = code
	}
}

// Code returns the dense code for a zone id.
func (e *ZoneEncoding) Code(zoneID int) (int, bool) {
	if e.zoneToCode == nil {
		e.buildIndex()
	}
	code, ok := e.zoneToCode[zoneID]
	return code, ok
}

// ZoneID returns the zone id for a dense code.
func (e *ZoneEncoding) ZoneID(code int) (int, bool) {
	if code < 0 || code >= len(e.CodeToZone) {
		return 0, false
	}
	return e.CodeToZone[code], true
}

// Len returns the number of encoded zones.
func (e *ZoneEncoding) Len() int {
	return len(e.CodeToZone)
}

// BuildRows engineers features for every trip and returns them with the
// zone encoding derived from the trip set.
func BuildRows(trips []domain.Trip) ([]Row, *ZoneEncoding) {
	zoneIDs := make([]int, 0, len(trips))
	for _, t := range trips {
		zoneIDs = append(zoneIDs, t.PickupZone)
	}
	enc := NewZoneEncoding(zoneIDs)

	rows := make([]Row, 0, len(trips))
	for _, t := range trips {
		code, ok := enc.Code(t.PickupZone)
		if !ok {
			continue
		}
		hour, dow, month, weekend, peak := TimeFeatures(t.PickupTime)
		rows = append(rows, Row{
			ZoneID:     t.PickupZone,
			ZoneCode:   code,
			Hour:       hour,
			DayOfWeek:  dow,
			Month:      month,
			IsWeekend:  weekend,
			IsPeakHour: peak,
			Passengers: t.Passengers,
		})
	}
	return rows, enc
}

// Aggregate groups rows by (zone, hour, weekday, month, weekend, peak)
// and counts bookings per group. Output order is deterministic.
func Aggregate(rows []Row) []DemandRow {
	type key struct {
		zoneCode, hour, dow, month, weekend, peak int
	}
	counts := make(map[key]*DemandRow)
	for _, r := range rows {
		k := key{r.ZoneCode, r.Hour, r.DayOfWeek, r.Month, r.IsWeekend, r.IsPeakHour}
		if d, ok := counts[k]; ok {
			d.Bookings++
			continue
		}
		counts[k] = &DemandRow{
			ZoneID:     r.ZoneID,
			ZoneCode:   r.ZoneCode,
			Hour:       r.Hour,
			DayOfWeek:  r.DayOfWeek,
			Month:      r.Month,
			IsWeekend:  r.IsWeekend,
			IsPeakHour: r.IsPeakHour,
			Bookings:   1,
		}
	}

	out := make([]DemandRow, 0, len(counts))
	for _, d := range counts {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ZoneCode != b.ZoneCode {
			return a.ZoneCode < b.ZoneCode
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		return a.Hour < b.Hour
	})
	return out
}
