package rollup

import (
	"errors"
	"fmt"
	"time"

	"github.com/ErickG09/api-muro-eolico/localtime"
	"github.com/ErickG09/api-muro-eolico/models"

	"gorm.io/gorm"
)

// MinuteTotal is one minute's worth of converted propeller output.
type MinuteTotal struct {
	Propeller1 float64 `json:"propeller1"`
	Propeller2 float64 `json:"propeller2"`
	Propeller3 float64 `json:"propeller3"`
	Propeller4 float64 `json:"propeller4"`
	Propeller5 float64 `json:"propeller5"`
	Total      float64 `json:"total"`
}

// HourTotal is the raw magnitude sum for a single hour of today.
type HourTotal struct {
	Hour  int     `json:"hour"`
	Total float64 `json:"total"`
}

// DayOffsetTotal sums day buckets sharing a day-of-month number.
type DayOffsetTotal struct {
	Day   int     `json:"day"`
	Total float64 `json:"total"`
}

// WeekTotals is the Monday-Sunday view of the current local week.
type WeekTotals struct {
	WeekTotals map[string]float64 `json:"week_totals"`
	TotalWeek  float64            `json:"total_week"`
}

// LatestReading returns the most recently inserted reading, by insertion
// order rather than timestamp.
func (s *Service) LatestReading() (*models.Reading, error) {
	var r models.Reading
	err := s.db.Order("id DESC").First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "reading"}
	}
	if err != nil {
		return nil, &StorageError{Op: "latest reading", Err: err}
	}
	return &r, nil
}

// LatestSnapshot returns the newest snapshot row for one group tag.
func (s *Service) LatestSnapshot(group int) (*models.SnapshotReading, error) {
	var snap models.SnapshotReading
	err := s.db.Where("group_tag = ?", group).Order("id DESC").First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "snapshot"}
	}
	if err != nil {
		return nil, &StorageError{Op: "latest snapshot", Err: err}
	}
	return &snap, nil
}

// AllReadings returns every stored reading in insertion order.
func (s *Service) AllReadings() ([]models.Reading, error) {
	var readings []models.Reading
	if err := s.db.Order("id ASC").Find(&readings).Error; err != nil {
		return nil, &StorageError{Op: "all readings", Err: err}
	}
	return readings, nil
}

// ReadingsForDate returns the readings whose local calendar date matches
// the given day key.
func (s *Service) ReadingsForDate(dayKey time.Time) ([]models.Reading, error) {
	start, end := s.clock.DayBounds(dayKey)
	var readings []models.Reading
	err := s.db.Where("date >= ? AND date < ?", start, end).Order("id ASC").Find(&readings).Error
	if err != nil {
		return nil, &StorageError{Op: "readings for date", Err: err}
	}
	return readings, nil
}

// HourlyTotals sums converted propeller output per local hour of the given
// date. Every hour 0-23 is present; hours without readings report zero.
func (s *Service) HourlyTotals(dayKey time.Time) (map[int]float64, error) {
	readings, err := s.ReadingsForDate(dayKey)
	if err != nil {
		return nil, err
	}

	totals := make(map[int]float64, 24)
	for hour := 0; hour < 24; hour++ {
		totals[hour] = 0
	}
	for _, r := range readings {
		hour := s.clock.HourOf(r.Date)
		totals[hour] += convertPower(r.Propeller1) +
			convertPower(r.Propeller2) +
			convertPower(r.Propeller3) +
			convertPower(r.Propeller4) +
			convertPower(r.Propeller5)
	}
	return totals, nil
}

// MinuteTotals sums converted output per minute of the local hour
// containing ts. Every minute 0-59 is present; empty minutes are all-zero.
func (s *Service) MinuteTotals(ts time.Time) (map[int]MinuteTotal, error) {
	start, end := s.clock.HourBounds(ts)
	var readings []models.Reading
	err := s.db.Where("date >= ? AND date < ?", start, end).Order("id ASC").Find(&readings).Error
	if err != nil {
		return nil, &StorageError{Op: "minute totals", Err: err}
	}

	var buckets [60]MinuteTotal
	for _, r := range readings {
		minute := s.clock.MinuteOf(r.Date)
		b := &buckets[minute]
		b.Propeller1 += convertPower(r.Propeller1)
		b.Propeller2 += convertPower(r.Propeller2)
		b.Propeller3 += convertPower(r.Propeller3)
		b.Propeller4 += convertPower(r.Propeller4)
		b.Propeller5 += convertPower(r.Propeller5)
		b.Total += convertPower(r.Propeller1) +
			convertPower(r.Propeller2) +
			convertPower(r.Propeller3) +
			convertPower(r.Propeller4) +
			convertPower(r.Propeller5)
	}

	totals := make(map[int]MinuteTotal, 60)
	for minute, b := range buckets {
		totals[minute] = b
	}
	return totals, nil
}

// HourTotalToday returns the raw magnitude sum of today's readings falling
// in the given local hour.
func (s *Service) HourTotalToday(hour int) (*HourTotal, error) {
	if hour < 0 || hour > 23 {
		return nil, &ValidationError{Field: "hour", Reason: "must be between 0 and 23"}
	}
	readings, err := s.ReadingsForDate(s.clock.Today())
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, r := range readings {
		if s.clock.HourOf(r.Date) == hour {
			total += r.Sum()
		}
	}
	return &HourTotal{Hour: hour, Total: total}, nil
}

// GroupTotals sums the raw five-propeller magnitudes of all readings,
// grouped by the stored group tag. Keys have the form "group<N>".
func (s *Service) GroupTotals() (map[string]float64, error) {
	var rows []struct {
		GroupTag int
		Total    float64
	}
	err := s.db.Model(&models.Reading{}).
		Select("group_tag, SUM(propeller1 + propeller2 + propeller3 + propeller4 + propeller5) AS total").
		Group("group_tag").
		Scan(&rows).Error
	if err != nil {
		return nil, &StorageError{Op: "group totals", Err: err}
	}

	totals := make(map[string]float64, len(rows))
	for _, row := range rows {
		totals[fmt.Sprintf("group%d", row.GroupTag)] = row.Total
	}
	return totals, nil
}

// CurrentDay returns today's day bucket, or nil when no qualifying reading
// has arrived yet today.
func (s *Service) CurrentDay() (*models.DayRollup, error) {
	return s.dayRollupByKey(s.clock.Today())
}

func (s *Service) dayRollupByKey(dayKey time.Time) (*models.DayRollup, error) {
	var row models.DayRollup
	err := s.db.Where("date = ?", dayKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "day rollup lookup", Err: err}
	}
	return &row, nil
}

// CurrentMonth returns this month's bucket, or nil when absent.
func (s *Service) CurrentMonth() (*models.MonthRollup, error) {
	var row models.MonthRollup
	err := s.db.Where("month = ?", s.clock.ThisMonth()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "month rollup lookup", Err: err}
	}
	return &row, nil
}

// AllTimeTotal returns the singleton running total, or nil before the
// first qualifying reading (and after a reset).
func (s *Service) AllTimeTotal() (*models.AllTimeRollup, error) {
	var row models.AllTimeRollup
	err := s.db.First(&row, models.AllTimeRollupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "all-time rollup lookup", Err: err}
	}
	return &row, nil
}

// AllDayRollups lists every day bucket in insertion order.
func (s *Service) AllDayRollups() ([]models.DayRollup, error) {
	var rows []models.DayRollup
	if err := s.db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, &StorageError{Op: "all day rollups", Err: err}
	}
	return rows, nil
}

// AllMonthRollups lists every month bucket in insertion order.
func (s *Service) AllMonthRollups() ([]models.MonthRollup, error) {
	var rows []models.MonthRollup
	if err := s.db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, &StorageError{Op: "all month rollups", Err: err}
	}
	return rows, nil
}

// DayByOffset sums the totals of every day bucket falling on the given
// day-of-month, across all months. Deliberate cross-month shape used by
// the dashboard's day-of-month comparison widget.
func (s *Service) DayByOffset(dayOfMonth int) (*DayOffsetTotal, error) {
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return nil, &ValidationError{Field: "day", Reason: "must be between 1 and 31"}
	}
	rows, err := s.AllDayRollups()
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, row := range rows {
		if row.Date.Day() == dayOfMonth {
			total += row.Total
		}
	}
	return &DayOffsetTotal{Day: dayOfMonth, Total: total}, nil
}

// CurrentWeekTotals returns the Monday-Sunday view of the current local
// week: per-day converted totals keyed by weekday label, plus the raw
// week sum.
func (s *Service) CurrentWeekTotals() (*WeekTotals, error) {
	weekStart := s.clock.WeekStart(s.clock.Today())
	weekEnd := weekStart.AddDate(0, 0, 6)

	var rows []models.DayRollup
	err := s.db.Where("date >= ? AND date <= ?", weekStart, weekEnd).Find(&rows).Error
	if err != nil {
		return nil, &StorageError{Op: "week totals", Err: err}
	}

	out := &WeekTotals{WeekTotals: make(map[string]float64, len(rows))}
	for _, row := range rows {
		out.WeekTotals[localtime.WeekdayLabel(row.Date)] = convertPower(row.Total)
		out.TotalWeek += row.Total
	}
	return out, nil
}

// Rolling30Days returns day-bucket totals for the 31-day window ending
// today, keyed by two-digit day-of-month. Days without a bucket report
// zero.
//
// Known aliasing: because the key is day-of-month only, a window that
// spans a month boundary maps two calendar dates onto the same key and
// the later-scanned bucket overwrites the earlier one. The dashboard
// consumes these keys as-is, so the shape is preserved rather than fixed.
func (s *Service) Rolling30Days() (map[string]float64, error) {
	today := s.clock.Today()
	windowStart := today.AddDate(0, 0, -30)

	totals := make(map[string]float64, 31)
	for i := 0; i <= 30; i++ {
		day := windowStart.AddDate(0, 0, i)
		totals[fmt.Sprintf("%02d", day.Day())] = 0
	}

	var rows []models.DayRollup
	err := s.db.Where("date >= ? AND date <= ?", windowStart, today).Find(&rows).Error
	if err != nil {
		return nil, &StorageError{Op: "rolling 30 days", Err: err}
	}
	for _, row := range rows {
		totals[fmt.Sprintf("%02d", row.Date.Day())] = row.Total
	}
	return totals, nil
}

// MonthBreakdown buckets every month rollup into the twelve calendar
// months, aggregated across years. All twelve keys are always present.
func (s *Service) MonthBreakdown() (map[int]float64, error) {
	rows, err := s.AllMonthRollups()
	if err != nil {
		return nil, err
	}
	totals := make(map[int]float64, 12)
	for month := 1; month <= 12; month++ {
		totals[month] = 0
	}
	for _, row := range rows {
		totals[int(row.Month.Month())] += row.Total
	}
	return totals, nil
}
