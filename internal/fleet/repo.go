package fleet

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// DriverRepo is the gorm-backed store for drivers.
type DriverRepo struct {
	db *gorm.DB
}

func NewDriverRepo(db *gorm.DB) *DriverRepo {
	return &DriverRepo{db: db}
}

func (r *DriverRepo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

// ListActive returns every active driver, the matcher's internal side.
func (r *DriverRepo) ListActive(ctx context.Context) ([]Driver, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var drivers []Driver
	if err := db.Where("status = ?", DriverStatusActive).Find(&drivers).Error; err != nil {
		return nil, err
	}
	return drivers, nil
}

// LinkExternalID writes the external-identifier link; the write-once rule is
// the caller's responsibility.
func (r *DriverRepo) LinkExternalID(ctx context.Context, driverID, externalID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Model(&Driver{}).Where("id = ?", driverID).
		Update("external_driver_id", externalID).Error
}

// UpdateGlobalScore sets the driver's denormalized latest composite score.
func (r *DriverRepo) UpdateGlobalScore(ctx context.Context, driverID string, score float64) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Model(&Driver{}).Where("id = ?", driverID).
		Update("global_score", score).Error
}

// ActivityRepo is the gorm-backed store for daily activity records.
type ActivityRepo struct {
	db *gorm.DB
}

func NewActivityRepo(db *gorm.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

// Get returns the record with the given id, or nil when none exists.
func (r *ActivityRepo) Get(ctx context.Context, id string) (*ActivityRecord, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var rec ActivityRecord
	if err := db.Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Save upserts by primary key.
func (r *ActivityRepo) Save(ctx context.Context, rec *ActivityRecord) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(rec).Error
}

// LatestForDriver returns the driver's most recent record by date, or nil
// when the driver has none.
func (r *ActivityRepo) LatestForDriver(ctx context.Context, driverID string) (*ActivityRecord, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var rec ActivityRecord
	err := db.Where("driver_id = ?", driverID).Order("date DESC").First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// List supports the dashboard's record browsing with driver/date filters.
func (r *ActivityRepo) List(ctx context.Context, driverID, date string, offset, limit int) ([]ActivityRecord, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := db.Model(&ActivityRecord{})
	if driverID != "" {
		q = q.Where("driver_id = ?", driverID)
	}
	if date != "" {
		q = q.Where("date = ?", date)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var records []ActivityRecord
	if err := q.Order("date DESC").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SettingsRepo reads the single fleet settings row.
type SettingsRepo struct {
	db *gorm.DB
}

func NewSettingsRepo(db *gorm.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the settings row, or nil when none has been created yet.
func (r *SettingsRepo) Get(ctx context.Context) (*FleetSettings, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var s FleetSettings
	err := r.db.WithContext(ctx).Order("id ASC").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
