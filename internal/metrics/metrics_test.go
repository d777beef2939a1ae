package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_ScanFinished(t *testing.T) {
	r := New()
	r.ScanFinished(OutcomeAccepted, "ean_13", 1500*time.Millisecond)
	r.ScanFinished(OutcomeAccepted, "", time.Second)
	r.ScanFinished(OutcomeCancelled, "", 0)

	if got := testutil.ToFloat64(r.scans.WithLabelValues(OutcomeAccepted)); got != 2 {
		t.Errorf("accepted scans = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.scans.WithLabelValues(OutcomeCancelled)); got != 1 {
		t.Errorf("cancelled scans = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.detections.WithLabelValues("unknown")); got != 1 {
		t.Errorf("unknown-format detections = %v, want 1", got)
	}
}

func TestRecorder_Inventory(t *testing.T) {
	r := New()
	r.InventoryChanged("add")
	r.InventoryChanged("add")
	r.InventoryChanged("remove")

	if got := testutil.ToFloat64(r.inventoryOps.WithLabelValues("add")); got != 2 {
		t.Errorf("add ops = %v, want 2", got)
	}

	size := 3
	if err := r.TrackInventorySize(func() int { return size }); err != nil {
		t.Fatalf("TrackInventorySize() error = %v", err)
	}
	if err := r.TrackInventorySize(func() int { return 0 }); err == nil {
		t.Error("registering the size gauge twice should fail")
	}
	if got, err := testutil.GatherAndCount(r.Registry(), "shelfscan_inventory_items"); err != nil || got != 1 {
		t.Errorf("GatherAndCount() = %d, %v; want 1 series", got, err)
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.HookRan("beep", true)
	r.Observe(context.Background(), "docstore.save", false, 10*time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`shelfscan_hook_runs_total{hook="beep",status="success"} 1`,
		`shelfscan_operation_duration_seconds_count{operation="docstore.save",status="error"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.ScanFinished(OutcomeFailed, "", 0)
	r.InventoryChanged("add")
	if err := r.TrackInventorySize(func() int { return 1 }); err != nil {
		t.Errorf("TrackInventorySize() on nil = %v", err)
	}
	r.Observe(context.Background(), "x", true, 0)
	r.HookRan("x", false)
	if r.Registry() != nil {
		t.Error("nil recorder Registry() should be nil")
	}

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil recorder handler status = %d, want 404", rec.Code)
	}
}
