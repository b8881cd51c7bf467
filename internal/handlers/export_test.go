package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nifgashim/trek-api/internal/models"
	"github.com/sirupsen/logrus"
)

func TestHandleExport(t *testing.T) {
	env := newTestEnv(t)
	env.seedTrip(t)
	h := NewExportHandler(env.store, env.log)

	reg := seedRegistration(t, env, "dana@example.com")
	if _, err := env.store.CompleteRegistration(context.Background(), reg.ID, "T1", 255, time.Now()); err != nil {
		t.Fatalf("CompleteRegistration returned error: %v", err)
	}
	day := 1
	if _, _, err := env.store.AppendCheckIn(context.Background(), models.CheckIn{
		RegistrationID: reg.ID,
		ParticipantKey: "123456789",
		DayNumber:      &day,
		CheckedInAt:    time.Now(),
		CheckedInBy:    "gate-volunteer",
	}); err != nil {
		t.Fatalf("AppendCheckIn returned error: %v", err)
	}
	seedRegistration(t, env, "pending@example.com")

	req := httptest.NewRequest(http.MethodGet, "/admin/export?trip_id=trip-1", nil)
	w := httptest.NewRecorder()
	h.HandleExport(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %q", ct)
	}

	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse csv: %v", err)
	}
	// Header plus one row per participant across both registrations.
	if len(rows) != 3 {
		t.Fatalf("expected 3 csv rows, got %d", len(rows))
	}

	var paidRow []string
	for _, row := range rows[1:] {
		if row[0] == reg.ID {
			paidRow = row
		}
	}
	if paidRow == nil {
		t.Fatal("paid registration missing from export")
	}
	if paidRow[2] != "completed" || paidRow[4] != "T1" {
		t.Errorf("unexpected status columns: %v", paidRow)
	}
	if paidRow[12] != "1" || paidRow[13] != "gate-volunteer" {
		t.Errorf("unexpected check-in columns: %v", paidRow)
	}
}

func TestHandleExportStatusFilter(t *testing.T) {
	env := newTestEnv(t)
	env.seedTrip(t)
	h := NewExportHandler(env.store, env.log)

	reg := seedRegistration(t, env, "dana@example.com")
	if _, err := env.store.CompleteRegistration(context.Background(), reg.ID, "T1", 255, time.Now()); err != nil {
		t.Fatalf("CompleteRegistration returned error: %v", err)
	}
	seedRegistration(t, env, "pending@example.com")

	req := httptest.NewRequest(http.MethodGet, "/admin/export?trip_id=trip-1&status=completed", nil)
	w := httptest.NewRecorder()
	h.HandleExport(w, req)

	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one completed row, got %d rows", len(rows))
	}
	if rows[1][0] != reg.ID {
		t.Errorf("expected the completed registration, got %v", rows[1])
	}
}

type brokenResponseWriter struct {
	header http.Header
	code   int
}

func (w *brokenResponseWriter) Header() http.Header {
	if w.header == nil {
		w.header = http.Header{}
	}
	return w.header
}

func (w *brokenResponseWriter) WriteHeader(code int) { w.code = code }

func (w *brokenResponseWriter) Write([]byte) (int, error) {
	return 0, errors.New("client went away")
}

func TestHandleExportLogsWriteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedTrip(t)
	seedRegistration(t, env, "dana@example.com")

	var logs bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&logs)
	h := NewExportHandler(env.store, logger)

	req := httptest.NewRequest(http.MethodGet, "/admin/export?trip_id=trip-1", nil)
	h.HandleExport(&brokenResponseWriter{}, req)

	if !strings.Contains(logs.String(), "export write failed") {
		t.Errorf("expected a write failure log entry, got: %s", logs.String())
	}
}
