// Package rollup is the aggregation core of the wind-wall API: it ingests
// propeller readings, keeps the day/month/all-time totals consistent with
// the raw data, and answers the dashboard's time-bucketed queries.
package rollup

import (
	"errors"
	"sync"
	"time"

	"github.com/ErickG09/api-muro-eolico/config"
	"github.com/ErickG09/api-muro-eolico/localtime"
	"github.com/ErickG09/api-muro-eolico/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityThreshold is the fixed magnitude sum below which a reading is
// treated as sensor noise and discarded without being persisted.
const ActivityThreshold = 0.2

// convertPower maps a raw propeller magnitude to the dashboard's power
// unit. Fixed physical conversion for this rig, not configurable.
func convertPower(v float64) float64 {
	return v * v / 216 * 1000
}

// Service implements ingestion, rollup maintenance, and the bucketed
// query operations on top of the relational store.
type Service struct {
	db           *gorm.DB
	clock        *localtime.Clock
	sensorMode   string
	bucketLookup string

	// Serializes rollup updates under the legacy latest-row policy, which
	// cannot go through the conditional upsert. The idempotent policy
	// relies on the storage-level upsert instead and does not take it.
	mu sync.Mutex
}

// New creates a Service with the given storage handle, calendar clock,
// and ingestion policies.
func New(db *gorm.DB, clock *localtime.Clock, ingest config.IngestConfig) *Service {
	models.SetDisplayLocation(clock.Location())
	return &Service{
		db:           db,
		clock:        clock,
		sensorMode:   ingest.SensorMode,
		bucketLookup: ingest.BucketLookup,
	}
}

// SubmitInput carries one reading from the rig. Propeller values are
// pointers so a missing field is distinguishable from an explicit zero.
type SubmitInput struct {
	Propeller1 *float64   `json:"propeller1"`
	Propeller2 *float64   `json:"propeller2"`
	Propeller3 *float64   `json:"propeller3"`
	Propeller4 *float64   `json:"propeller4"`
	Propeller5 *float64   `json:"propeller5"`
	Group      int        `json:"group"`
	Date       *time.Time `json:"-"`
}

// SubmitResult distinguishes a persisted reading from the below-threshold
// outcome, which writes nothing and is not an error.
type SubmitResult struct {
	Saved   bool
	Reading *models.Reading
}

// SubmitReading validates the input, applies the activity-threshold gate,
// and, for a qualifying reading, persists the raw row and additively
// updates the day, month, and all-time rollups in one transaction.
func (s *Service) SubmitReading(in SubmitInput) (*SubmitResult, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	p1 := deref(in.Propeller1)
	p2 := deref(in.Propeller2)
	p3 := deref(in.Propeller3)
	p4 := deref(in.Propeller4)
	p5 := deref(in.Propeller5)

	total := p1 + p2 + p3 + p4 + p5
	if total < ActivityThreshold {
		return &SubmitResult{Saved: false}, nil
	}

	ts := s.clock.Now()
	if in.Date != nil {
		ts = *in.Date
	}

	// Physical grouping of the propellers on the wall
	group1 := p1 + p2
	group2 := p3
	group3 := p4 + p5

	reading := models.Reading{
		Date:       ts.UTC(),
		Group:      in.Group,
		Propeller1: p1,
		Propeller2: p2,
		Propeller3: p3,
		Propeller4: p4,
		Propeller5: p5,
	}
	snapshot := models.SnapshotReading{
		Date:       ts.UTC(),
		Group:      in.Group,
		Propeller1: p1,
		Propeller2: p2,
		Propeller3: p3,
		Propeller4: p4,
		Propeller5: p5,
	}

	dayKey := s.clock.DayKey(ts)
	monthKey := s.clock.MonthKey(ts)

	if s.bucketLookup == config.BucketLookupLatestRow {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&reading).Error; err != nil {
			return err
		}
		if err := tx.Create(&snapshot).Error; err != nil {
			return err
		}
		if err := s.updateDayRollup(tx, dayKey, total, group1, group2, group3); err != nil {
			return err
		}
		if err := s.updateMonthRollup(tx, monthKey, total); err != nil {
			return err
		}
		return s.updateAllTimeRollup(tx, total)
	})
	if err != nil {
		return nil, &StorageError{Op: "submit reading", Err: err}
	}

	return &SubmitResult{Saved: true, Reading: &reading}, nil
}

// validate enforces the configured sensor mode before any write happens.
// Checks run in propeller order so the reported field is deterministic.
func (s *Service) validate(in SubmitInput) error {
	names := []string{"propeller1", "propeller2", "propeller3", "propeller4", "propeller5"}
	values := []*float64{in.Propeller1, in.Propeller2, in.Propeller3, in.Propeller4, in.Propeller5}

	if in.Propeller1 == nil {
		return &ValidationError{Field: "propeller1", Reason: "is required"}
	}
	if s.sensorMode == config.SensorModeStrict {
		for i, v := range values {
			if v == nil {
				return &ValidationError{Field: names[i], Reason: "is required in strict mode"}
			}
		}
	}
	for i, v := range values {
		if v != nil && *v < 0 {
			return &ValidationError{Field: names[i], Reason: "must be non-negative"}
		}
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// updateDayRollup applies the configured bucket-lookup policy for the day
// aggregate.
func (s *Service) updateDayRollup(tx *gorm.DB, dayKey time.Time, total, g1, g2, g3 float64) error {
	if s.bucketLookup == config.BucketLookupLatestRow {
		return s.updateDayRollupLatestRow(tx, dayKey, total, g1, g2, g3)
	}

	// Increment-or-create on the unique date key. The increments happen at
	// the storage layer, so two concurrent submissions for the same bucket
	// both land instead of one overwriting the other.
	row := models.DayRollup{
		Date:    dayKey,
		Total:   total,
		Group1:  g1,
		Group2:  g2,
		Group3:  g3,
		Entries: 1,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total":   gorm.Expr("total + ?", total),
			"group1":  gorm.Expr("group1 + ?", g1),
			"group2":  gorm.Expr("group2 + ?", g2),
			"group3":  gorm.Expr("group3 + ?", g3),
			"entries": gorm.Expr("entries + 1"),
		}),
	}).Create(&row).Error
}

// updateDayRollupLatestRow reproduces the legacy collector: it inspects
// only the most-recently-inserted day row and opens a fresh bucket when
// that row's date differs. If rows were ever inserted out of date order
// this creates a second bucket for an existing date; the comparison is at
// least typed on the bucket key, never on formatted strings.
func (s *Service) updateDayRollupLatestRow(tx *gorm.DB, dayKey time.Time, total, g1, g2, g3 float64) error {
	var latest models.DayRollup
	err := tx.Order("id DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !latest.Date.Equal(dayKey)) {
		return tx.Create(&models.DayRollup{
			Date:    dayKey,
			Total:   total,
			Group1:  g1,
			Group2:  g2,
			Group3:  g3,
			Entries: 1,
		}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&models.DayRollup{}).Where("id = ?", latest.ID).
		Updates(map[string]interface{}{
			"total":   gorm.Expr("total + ?", total),
			"group1":  gorm.Expr("group1 + ?", g1),
			"group2":  gorm.Expr("group2 + ?", g2),
			"group3":  gorm.Expr("group3 + ?", g3),
			"entries": gorm.Expr("entries + 1"),
		}).Error
}

func (s *Service) updateMonthRollup(tx *gorm.DB, monthKey time.Time, total float64) error {
	row := models.MonthRollup{
		Month:   monthKey,
		Total:   total,
		Entries: 1,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "month"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total":   gorm.Expr("total + ?", total),
			"entries": gorm.Expr("entries + 1"),
		}),
	}).Create(&row).Error
}

// updateAllTimeRollup maintains the singleton running total as a fixed-id
// row under the same upsert discipline as the other buckets.
func (s *Service) updateAllTimeRollup(tx *gorm.DB, total float64) error {
	row := models.AllTimeRollup{
		ID:    models.AllTimeRollupID,
		Total: total,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total": gorm.Expr("total + ?", total),
		}),
	}).Create(&row).Error
}

// ResetAll deletes every reading and every rollup in one transaction.
// Snapshots are left alone; they have their own reset.
func (s *Service) ResetAll() error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.Reading{},
			&models.DayRollup{},
			&models.MonthRollup{},
			&models.AllTimeRollup{},
		} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &StorageError{Op: "reset all", Err: err}
	}
	return nil
}

// ResetSnapshots clears the per-group snapshot table.
func (s *Service) ResetSnapshots() error {
	if err := s.db.Where("1 = 1").Delete(&models.SnapshotReading{}).Error; err != nil {
		return &StorageError{Op: "reset snapshots", Err: err}
	}
	return nil
}

// DeleteZeroReadings removes readings where all five propellers read zero
// and reports how many rows were removed. Rollups are untouched: all-zero
// readings never qualified, so they contributed nothing to aggregate.
func (s *Service) DeleteZeroReadings() (int64, error) {
	res := s.db.
		Where("propeller1 = 0 AND propeller2 = 0 AND propeller3 = 0 AND propeller4 = 0 AND propeller5 = 0").
		Delete(&models.Reading{})
	if res.Error != nil {
		return 0, &StorageError{Op: "delete zero readings", Err: res.Error}
	}
	return res.RowsAffected, nil
}

// DeleteDayRollup removes a single day bucket by id.
func (s *Service) DeleteDayRollup(id uint) error {
	res := s.db.Delete(&models.DayRollup{}, id)
	if res.Error != nil {
		return &StorageError{Op: "delete day rollup", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Entity: "day rollup"}
	}
	return nil
}
