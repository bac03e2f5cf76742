package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/metrics"
)

// newServer serves handler under /api/ and returns a client for it.
func newServer(t *testing.T, handler http.HandlerFunc, optFns ...func(o *HTTPOptions)) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL+"/", optFns...)
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestHTTPClient_LoadGame(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	var gotPath, gotRequestID string
	var gotBody map[string]any

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get(RequestIDHeader)
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		writeJSON(w, map[string]any{
			"success":   true,
			"slot":      2,
			"saveData":  map[string]any{"scene": "plaza"},
			"metadata":  map[string]any{"title": "Chapter 3", "timestamp": ts},
			"ownerId":   "u1",
			"timestamp": ts,
		})
	})

	art, err := c.LoadGame(context.Background(), "u1", 2)
	if err != nil {
		t.Fatalf("LoadGame() error = %v", err)
	}

	if gotPath != "/api/load_game" {
		t.Errorf("path = %q, want /api/load_game", gotPath)
	}
	if gotRequestID == "" {
		t.Error("request id header missing")
	}
	if diff := cmp.Diff(map[string]any{"userId": "u1", "slot": float64(2)}, gotBody); diff != "" {
		t.Errorf("request body (-want +got):\n%s", diff)
	}

	want := SaveArtifact{
		Slot:      2,
		Blob:      json.RawMessage(`{"scene":"plaza"}`),
		Metadata:  SaveMetadata{Title: "Chapter 3", Timestamp: ts},
		OwnerID:   "u1",
		Timestamp: ts,
	}
	if diff := cmp.Diff(want, art); diff != "" {
		t.Errorf("LoadGame() (-want +got):\n%s", diff)
	}
}

func TestHTTPClient_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "server error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: ErrNetwork,
		},
		{
			name: "success false",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{"success": false, "error": "db down"})
			},
			want: ErrNetwork,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>oops</html>"))
			},
			want: ErrData,
		},
		{
			name: "missing blob",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{"success": true, "ownerId": "u1"})
			},
			want: ErrData,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "no save", http.StatusNotFound)
			},
			want: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newServer(t, tt.handler)
			_, err := c.LoadGame(context.Background(), "u1", 1)
			if !errors.Is(err, tt.want) {
				t.Errorf("LoadGame() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHTTPClient_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, func(o *HTTPOptions) {
		o.Timeout = 50 * time.Millisecond
	})
	defer close(release)

	_, err := c.ListSaves(context.Background(), "u1")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("ListSaves() error = %v, want ErrNetwork", err)
	}
}

func TestHTTPClient_ListSaves(t *testing.T) {
	t.Parallel()

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"success": true,
			"saves": []map[string]any{
				{"slot": 1, "metadata": map[string]any{"title": "Save 1"}},
			},
		})
	})

	saves, err := c.ListSaves(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(saves) != 1 || saves[0].Slot != 1 || saves[0].Metadata.Title != "Save 1" {
		t.Errorf("ListSaves() = %+v", saves)
	}
}

func TestHTTPClient_ListSavesEmpty(t *testing.T) {
	t.Parallel()

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true})
	})

	saves, err := c.ListSaves(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if saves == nil || len(saves) != 0 {
		t.Errorf("ListSaves() = %#v, want empty non-nil", saves)
	}
}

func TestHTTPClient_Sessions(t *testing.T) {
	t.Parallel()

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/start_session":
			writeJSON(w, map[string]any{"success": true, "sessionId": "s-1"})
		case "/api/end_session":
			var body struct {
				SessionID string `json:"sessionId"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			writeJSON(w, map[string]any{"success": body.SessionID == "s-1"})
		default:
			http.NotFound(w, r)
		}
	})

	id, err := c.StartSession(context.Background(), "u1")
	if err != nil || id != "s-1" {
		t.Fatalf("StartSession() = %q, %v", id, err)
	}
	if err := c.EndSession(context.Background(), id); err != nil {
		t.Errorf("EndSession() error = %v", err)
	}
	if err := c.EndSession(context.Background(), "other"); !errors.Is(err, ErrNetwork) {
		t.Errorf("EndSession(other) error = %v, want ErrNetwork", err)
	}
}

func TestHTTPClient_Progress(t *testing.T) {
	t.Parallel()

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/update_progress":
			var body struct {
				UserID   string         `json:"userId"`
				Progress ProgressRecord `json:"progress"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			writeJSON(w, map[string]any{
				"success":            true,
				"progressPercentage": float64(body.Progress.CompletedQuests) * 10,
			})
		case "/api/get_progress":
			writeJSON(w, map[string]any{
				"success": true,
				"ownerId": "u1",
				"progress": map[string]any{
					"coins": 5, "completedQuests": 3, "progressPercentage": 30,
				},
			})
		}
	})

	pct, err := c.UpdateProgress(context.Background(), "u1", ProgressRecord{CompletedQuests: 4})
	if err != nil || pct != 40 {
		t.Fatalf("UpdateProgress() = %v, %v; want 40", pct, err)
	}

	snap, err := c.GetProgress(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	want := ProgressSnapshot{
		OwnerID: "u1",
		Record:  ProgressRecord{Coins: 5, CompletedQuests: 3, ProgressPercentage: 30},
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("GetProgress() (-want +got):\n%s", diff)
	}
}

func TestHTTPClient_UpdateProgressMissingPercentage(t *testing.T) {
	t.Parallel()

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true})
	})

	if _, err := c.UpdateProgress(context.Background(), "u1", ProgressRecord{}); !errors.Is(err, ErrData) {
		t.Errorf("UpdateProgress() error = %v, want ErrData", err)
	}
}

func TestHTTPClient_RateLimitHonorsContext(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, map[string]any{"success": true})
	}, func(o *HTTPOptions) {
		o.RateLimit = 0.001
		o.Burst = 1
	})

	if err := c.EndSession(context.Background(), "s"); err != nil {
		t.Fatalf("first call error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.EndSession(ctx, "s"); !errors.Is(err, ErrNetwork) {
		t.Errorf("limited call error = %v, want ErrNetwork", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestHTTPClient_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}, func(o *HTTPOptions) {
		o.Metrics = m
	})

	_, _ = c.ListSaves(context.Background(), "u1")

	if n := testutil.CollectAndCount(reg, "savesync_remote_calls_total"); n == 0 {
		t.Error("remote call not counted")
	}
}

func TestNewHTTPClient_RequiresBase(t *testing.T) {
	t.Parallel()

	if _, err := NewHTTPClient("  "); err == nil {
		t.Fatal("NewHTTPClient(blank) error = nil")
	}
}
