package models

import (
	"encoding/json"
	"time"
)

// Reading is one raw sample from the wind wall: five propeller magnitudes
// taken at one moment. Rows are append-only; they are removed only by the
// reset and delete-zeros maintenance operations.
type Reading struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Date       time.Time `gorm:"not null;index"`
	Group      int       `gorm:"column:group_tag;not null"`
	Propeller1 float64   `gorm:"not null"`
	Propeller2 float64   `gorm:"not null"`
	Propeller3 float64   `gorm:"not null"`
	Propeller4 float64   `gorm:"not null"`
	Propeller5 float64   `gorm:"not null"`
}

// TableName customizes the table name
func (Reading) TableName() string {
	return "wall_data"
}

// Sum returns the raw magnitude total across all five propellers
func (r Reading) Sum() float64 {
	return r.Propeller1 + r.Propeller2 + r.Propeller3 + r.Propeller4 + r.Propeller5
}

// displayLocation is the locale timestamps are rendered in. Rows are
// stored as UTC instants so range queries compare correctly, but the
// dashboard shows the rig's wall clock.
var displayLocation = time.UTC

// SetDisplayLocation sets the locale used when rendering timestamps.
func SetDisplayLocation(loc *time.Location) {
	displayLocation = loc
}

// readingJSON is the wire shape the dashboard expects for a reading
type readingJSON struct {
	ID         uint    `json:"id"`
	Date       string  `json:"date"`
	Group      int     `json:"group"`
	Propeller1 float64 `json:"propeller1"`
	Propeller2 float64 `json:"propeller2"`
	Propeller3 float64 `json:"propeller3"`
	Propeller4 float64 `json:"propeller4"`
	Propeller5 float64 `json:"propeller5"`
}

// MarshalJSON keeps the timestamp in the dashboard's established format
func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(readingJSON{
		ID:         r.ID,
		Date:       r.Date.In(displayLocation).Format("2006-01-02 15:04:05"),
		Group:      r.Group,
		Propeller1: r.Propeller1,
		Propeller2: r.Propeller2,
		Propeller3: r.Propeller3,
		Propeller4: r.Propeller4,
		Propeller5: r.Propeller5,
	})
}

// SnapshotReading mirrors Reading in a separate table that the rig's local
// display polls per group and resets independently of the history.
type SnapshotReading struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Date       time.Time `gorm:"not null;index"`
	Group      int       `gorm:"column:group_tag;not null;index"`
	Propeller1 float64   `gorm:"not null"`
	Propeller2 float64   `gorm:"not null"`
	Propeller3 float64   `gorm:"not null"`
	Propeller4 float64   `gorm:"not null"`
	Propeller5 float64   `gorm:"not null"`
}

// TableName customizes the table name
func (SnapshotReading) TableName() string {
	return "temp_wall_data"
}

// MarshalJSON keeps the timestamp in the dashboard's established format
func (s SnapshotReading) MarshalJSON() ([]byte, error) {
	return json.Marshal(readingJSON{
		ID:         s.ID,
		Date:       s.Date.In(displayLocation).Format("2006-01-02 15:04:05"),
		Group:      s.Group,
		Propeller1: s.Propeller1,
		Propeller2: s.Propeller2,
		Propeller3: s.Propeller3,
		Propeller4: s.Propeller4,
		Propeller5: s.Propeller5,
	})
}

// DayRollup is the pre-aggregated total for one local calendar date.
// Date is the bucket key: midnight UTC of the local calendar date, so
// equality lookups are typed, never string comparisons. Group sums follow
// the physical propeller placement: group1 = p1+p2, group2 = p3,
// group3 = p4+p5, and Group1+Group2+Group3 must always equal Total.
type DayRollup struct {
	ID      uint      `gorm:"primaryKey;autoIncrement"`
	Date    time.Time `gorm:"type:date;uniqueIndex;not null"`
	Total   float64   `gorm:"not null"`
	Group1  float64   `gorm:"not null"`
	Group2  float64   `gorm:"not null"`
	Group3  float64   `gorm:"not null"`
	Entries int64     `gorm:"not null;default:0"`
}

// TableName customizes the table name
func (DayRollup) TableName() string {
	return "total_day"
}

// MarshalJSON emits the date as a plain calendar date
func (d DayRollup) MarshalJSON() ([]byte, error) {
	type dayJSON struct {
		ID      uint    `json:"id"`
		Date    string  `json:"date"`
		Total   float64 `json:"total"`
		Group1  float64 `json:"group1"`
		Group2  float64 `json:"group2"`
		Group3  float64 `json:"group3"`
		Entries int64   `json:"entries"`
	}
	return json.Marshal(dayJSON{
		ID:      d.ID,
		Date:    d.Date.Format("2006-01-02"),
		Total:   d.Total,
		Group1:  d.Group1,
		Group2:  d.Group2,
		Group3:  d.Group3,
		Entries: d.Entries,
	})
}

// MonthRollup is the pre-aggregated total for one calendar month.
// Month is the bucket key: midnight UTC of the first day of the month.
type MonthRollup struct {
	ID      uint      `gorm:"primaryKey;autoIncrement"`
	Month   time.Time `gorm:"type:date;uniqueIndex;not null"`
	Total   float64   `gorm:"not null"`
	Entries int64     `gorm:"not null;default:0"`
}

// TableName customizes the table name
func (MonthRollup) TableName() string {
	return "total_month"
}

// MarshalJSON emits the month key as YYYY-MM
func (m MonthRollup) MarshalJSON() ([]byte, error) {
	type monthJSON struct {
		ID      uint    `json:"id"`
		Date    string  `json:"date"`
		Total   float64 `json:"total"`
		Entries int64   `json:"entries"`
	}
	return json.Marshal(monthJSON{
		ID:      m.ID,
		Date:    m.Month.Format("2006-01"),
		Total:   m.Total,
		Entries: m.Entries,
	})
}

// AllTimeRollupID is the fixed key of the singleton all-time row.
const AllTimeRollupID uint = 1

// AllTimeRollup is the running total across every qualifying reading since
// the last reset. At most one row ever exists, addressed by AllTimeRollupID.
type AllTimeRollup struct {
	ID    uint    `gorm:"primaryKey" json:"id"`
	Total float64 `gorm:"not null" json:"total"`
}

// TableName customizes the table name
func (AllTimeRollup) TableName() string {
	return "total_all"
}

// GetAllModels returns all models for migration
func GetAllModels() []interface{} {
	return []interface{}{
		&Reading{},
		&SnapshotReading{},
		&DayRollup{},
		&MonthRollup{},
		&AllTimeRollup{},
	}
}
