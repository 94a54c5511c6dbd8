package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/internal/home"
	"github.com/danbryan/redline/internal/jobs"
	"github.com/danbryan/redline/internal/stages"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// jobServer serves a scripted sequence of snapshots for one job id.
func jobServer(t *testing.T, snaps []jobs.Snapshot) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		idx := int(n) - 1
		if idx >= len(snaps) {
			idx = len(snaps) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snaps[idx])
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestWaitUntilDone(t *testing.T) {
	snaps := []jobs.Snapshot{
		{ID: "j1", Status: jobs.StatusRunning, Step: 0, Total: 6, CurrentLabel: "purpose", CurrentAgent: "contract analyst", Partials: map[string]string{}},
		{ID: "j1", Status: jobs.StatusRunning, Step: 2, Total: 6, CurrentLabel: "legal_risks", Partials: map[string]string{"purpose": "p", "commercial": "c"}},
		{ID: "j1", Status: jobs.StatusDone, Step: 6, Total: 6, Partials: map[string]string{"purpose": "p", "commercial": "c", "legal_risks": "l"}},
	}
	srv, calls := jobServer(t, snaps)

	var out bytes.Buffer
	p := New(Config{
		Client:   api.NewClient(srv.URL),
		Interval: 5 * time.Millisecond,
		Out:      &out,
		Logger:   testLogger(),
	})

	snap, err := p.Wait(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if snap.Status != jobs.StatusDone {
		t.Errorf("final status = %s, want done", snap.Status)
	}
	if calls.Load() < 3 {
		t.Errorf("calls = %d, want at least 3", calls.Load())
	}
	if !strings.Contains(out.String(), "legal_risks") {
		t.Errorf("progress output missing stage label:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "done: purpose") {
		t.Errorf("progress output missing partial announcement:\n%s", out.String())
	}
}

func TestWaitRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(jobs.Snapshot{ID: "j2", Status: jobs.StatusDone, Step: 6, Total: 6})
	}))
	t.Cleanup(srv.Close)

	p := New(Config{
		Client:   api.NewClient(srv.URL),
		Interval: 5 * time.Millisecond,
		Out:      io.Discard,
		Logger:   testLogger(),
	})

	snap, err := p.Wait(context.Background(), "j2")
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if snap.Status != jobs.StatusDone {
		t.Errorf("status = %s, want done", snap.Status)
	}
}

func TestWaitHonoursContextCancel(t *testing.T) {
	srv, _ := jobServer(t, []jobs.Snapshot{
		{ID: "j3", Status: jobs.StatusRunning, Step: 1, Total: 6},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	p := New(Config{
		Client:   api.NewClient(srv.URL),
		Interval: 5 * time.Millisecond,
		Out:      io.Discard,
		Logger:   testLogger(),
	})

	if _, err := p.Wait(ctx, "j3"); err == nil {
		t.Error("Wait() with cancelled context succeeded, want error")
	}
}

func TestLastJobRoundTrip(t *testing.T) {
	dir, err := home.New(filepath.Join(t.TempDir(), ".redline"))
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}

	if _, err := LoadLastJob(dir); err == nil {
		t.Error("LoadLastJob() on empty state succeeded, want error")
	}

	want := LastJob{JobID: "abc", Contract: "msa", Server: "http://localhost:8690", StartedAt: time.Now().UTC()}
	if err := SaveLastJob(dir, want); err != nil {
		t.Fatalf("SaveLastJob() error = %v", err)
	}

	got, err := LoadLastJob(dir)
	if err != nil {
		t.Fatalf("LoadLastJob() error = %v", err)
	}
	if got.JobID != want.JobID || got.Contract != want.Contract {
		t.Errorf("LoadLastJob() = %+v, want %+v", got, want)
	}

	bundle := &stages.Bundle{Purpose: "p", Meta: stages.Meta{Contract: "msa"}}
	if err := SaveLastResult(dir, bundle); err != nil {
		t.Fatalf("SaveLastResult() error = %v", err)
	}
	loaded, err := LoadLastResult(dir)
	if err != nil {
		t.Fatalf("LoadLastResult() error = %v", err)
	}
	if loaded.Purpose != "p" {
		t.Errorf("loaded purpose = %q, want p", loaded.Purpose)
	}

	ClearState(dir)
	if _, err := LoadLastJob(dir); err == nil {
		t.Error("LoadLastJob() after ClearState succeeded, want error")
	}
}
