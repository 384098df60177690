package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MoovFleet/MoovFleet/internal/fleet"
)

type fakeSettings struct {
	settings *fleet.FleetSettings
	err      error
}

func (f *fakeSettings) Get(ctx context.Context) (*fleet.FleetSettings, error) {
	return f.settings, f.err
}

type fakeLister struct {
	records []fleet.ActivityRecord
	total   int64
	err     error

	gotDriverID string
	gotDate     string
}

func (f *fakeLister) List(ctx context.Context, driverID, date string, offset, limit int) ([]fleet.ActivityRecord, int64, error) {
	f.gotDriverID = driverID
	f.gotDate = date
	return f.records, f.total, f.err
}

func testHandler(lister ActivityLister, settings *fakeSettings) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(nil, lister, settings, nil, time.UTC).Register(mux)
	return mux
}

func TestHealthz(t *testing.T) {
	mux := testHandler(&fakeLister{}, &fakeSettings{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRunSyncRejectsBadRequests(t *testing.T) {
	mux := testHandler(&fakeLister{}, &fakeSettings{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync/run", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET must be rejected, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync/run?date=02-03-2026", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date must be 400, got %d", rec.Code)
	}
}

func TestListRecords(t *testing.T) {
	lister := &fakeLister{
		records: []fleet.ActivityRecord{
			{ID: "d1:2026-03-02", DriverID: "d1", Date: "2026-03-02"},
		},
		total: 1,
	}
	mux := testHandler(lister, &fakeSettings{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/activity/records?driver_id=d1&date=2026-03-02", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if lister.gotDriverID != "d1" || lister.gotDate != "2026-03-02" {
		t.Fatalf("filters not forwarded: %q %q", lister.gotDriverID, lister.gotDate)
	}

	var body recordsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Total != 1 || len(body.Records) != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestListRecordsRejectsBadDate(t *testing.T) {
	mux := testHandler(&fakeLister{}, &fakeSettings{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/activity/records?date=garbage", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRemittanceDeadline(t *testing.T) {
	settings := &fakeSettings{settings: &fleet.FleetSettings{
		VersementRecurrence: "weekly",
		VersementWeekday:    int(time.Monday),
		VersementCutoff:     "18:00",
		PenaltyEnabled:      true,
		PenaltyKind:         "pourcentage",
		PenaltyValue:        5,
	}}
	mux := testHandler(&fakeLister{}, settings)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/remittance/deadline?amount=100000", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body deadlineResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.DeadlineAt.Weekday() != time.Monday {
		t.Fatalf("deadline must fall on the anchor weekday, got %v", body.DeadlineAt)
	}
	if !body.DeadlineAt.After(time.Now().Add(-time.Minute)) {
		t.Fatalf("deadline must be in the future, got %v", body.DeadlineAt)
	}
	if body.PenaltyPreview == nil || *body.PenaltyPreview != 5000 {
		t.Fatalf("expected penalty preview 5000, got %v", body.PenaltyPreview)
	}
}

func TestRemittanceDeadlineWithoutSettings(t *testing.T) {
	mux := testHandler(&fakeLister{}, &fakeSettings{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/remittance/deadline", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRemittanceDeadlineSettingsError(t *testing.T) {
	mux := testHandler(&fakeLister{}, &fakeSettings{err: errors.New("db down")})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/remittance/deadline", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
