package syncer

import (
	"context"
	"fmt"

	"github.com/MoovFleet/MoovFleet/internal/fleet"
)

// DriverStore is the slice of driver persistence the sync engine needs.
type DriverStore interface {
	ListActive(ctx context.Context) ([]fleet.Driver, error)
	LinkExternalID(ctx context.Context, driverID, externalID string) error
	UpdateGlobalScore(ctx context.Context, driverID string, score float64) error
}

// ActivityStore is the activity-record persistence the reconciler needs.
// Get and LatestForDriver return nil (no error) when nothing exists.
type ActivityStore interface {
	Get(ctx context.Context, id string) (*fleet.ActivityRecord, error)
	Save(ctx context.Context, rec *fleet.ActivityRecord) error
	LatestForDriver(ctx context.Context, driverID string) (*fleet.ActivityRecord, error)
}

// Reconciler upserts one (driver, date) activity record and maintains the
// driver's denormalized score and external link.
type Reconciler struct {
	drivers    DriverStore
	activities ActivityStore
}

func NewReconciler(drivers DriverStore, activities ActivityStore) *Reconciler {
	return &Reconciler{drivers: drivers, activities: activities}
}

// ReconcileResult reports whether the record was created or updated.
type ReconcileResult struct {
	Created bool
}

// Reconcile is idempotent: re-running it for the same (driver, date) with
// the same inputs produces the same stored state.
func (r *Reconciler) Reconcile(ctx context.Context, driver fleet.Driver, externalID, date string, m Metrics, objectiveMinutes int) (ReconcileResult, error) {
	if r == nil || r.drivers == nil || r.activities == nil {
		return ReconcileResult{}, fmt.Errorf("reconciler not initialized")
	}

	id := fleet.ActivityRecordID(driver.ID, date)
	rec, err := r.activities.Get(ctx, id)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("load activity record: %w", err)
	}

	activityScore := ActivityScore(m.ActivityMinutes, objectiveMinutes)
	created := rec == nil

	if created {
		// fresh record: no other sub-scores exist yet, the composite is the
		// activity score alone
		rec = &fleet.ActivityRecord{
			ID:       id,
			DriverID: driver.ID,
			Date:     date,
		}
		rec.ScoreActivity = &activityScore
		applyMetrics(rec, m)
		rec.GlobalScore = activityScore
	} else {
		rec.ScoreActivity = &activityScore
		applyMetrics(rec, m)
		rec.GlobalScore = RecomputeComposite(rec)
	}

	if err := r.activities.Save(ctx, rec); err != nil {
		return ReconcileResult{}, fmt.Errorf("save activity record: %w", err)
	}

	// denormalized latest composite: always from the most recent record by
	// date, which may not be the one just written
	latest, err := r.activities.LatestForDriver(ctx, driver.ID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("load latest record: %w", err)
	}
	if latest != nil {
		if err := r.drivers.UpdateGlobalScore(ctx, driver.ID, latest.GlobalScore); err != nil {
			return ReconcileResult{}, fmt.Errorf("update driver score: %w", err)
		}
	}

	// write-once external link
	if driver.ExternalDriverID == "" && externalID != "" {
		if err := r.drivers.LinkExternalID(ctx, driver.ID, externalID); err != nil {
			return ReconcileResult{}, fmt.Errorf("link external id: %w", err)
		}
	}

	return ReconcileResult{Created: created}, nil
}

func applyMetrics(rec *fleet.ActivityRecord, m Metrics) {
	rec.ActivityMinutes = m.ActivityMinutes
	rec.CompletedRides = m.CompletedRides
	rec.DistanceKm = m.DistanceKm
	rec.AvgSpeedKmh = m.AvgSpeedKmh
	rec.CashRevenue = m.CashRevenue
	rec.CashlessRevenue = m.CashlessRevenue
}
