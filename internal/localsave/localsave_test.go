package localsave

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
)

func TestStore_WriteRead(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	ts := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	art := remote.SaveArtifact{
		Slot:      3,
		Blob:      json.RawMessage(`{"scene":"harbor"}`),
		Metadata:  remote.SaveMetadata{Title: "Harbor", Timestamp: ts},
		Timestamp: ts,
	}

	if err := s.Write("u1", art); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := s.Read("u1", 3)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	art.OwnerID = "u1"
	if diff := cmp.Diff(art, got); diff != "" {
		t.Errorf("Read() (-want +got):\n%s", diff)
	}
}

func TestStore_ReadMissing(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	if _, err := s.Read("u1", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ReadCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(dir)
	path := s.slotPath("u1", 1)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Read("u1", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() on corrupt file error = %v, want ErrNotFound", err)
	}
}

func TestStore_IdentityIsolation(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	if err := s.Write("u1", remote.SaveArtifact{Slot: 1, Blob: json.RawMessage(`{}`)}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read("u2", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(u2) error = %v, want ErrNotFound", err)
	}

	// identities with path characters stay in their own directory
	if err := s.Write("../u1", remote.SaveArtifact{Slot: 1, Blob: json.RawMessage(`{"x":1}`)}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read("u1", 1)
	if err != nil || string(got.Blob) != `{}` {
		t.Errorf("Read(u1) = %s, %v after writing ../u1", got.Blob, err)
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	for _, slot := range []int{3, 1, 2} {
		art := remote.SaveArtifact{Slot: slot, Blob: json.RawMessage(`{}`)}
		if err := s.Write("u1", art); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List("u1")
	if err != nil {
		t.Fatal(err)
	}
	var slots []int
	for _, sum := range list {
		slots = append(slots, sum.Slot)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, slots); diff != "" {
		t.Errorf("List() slots (-want +got):\n%s", diff)
	}

	if err := s.Delete("u1", 2); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("u1", 2); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
	list, _ = s.List("u1")
	if len(list) != 2 {
		t.Errorf("List() after Delete() = %d slots, want 2", len(list))
	}

	empty, err := s.List("nobody")
	if err != nil || len(empty) != 0 {
		t.Errorf("List(nobody) = %v, %v", empty, err)
	}
}

func TestStore_SlotsIncludesUnreadable(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	if err := s.Write("u1", remote.SaveArtifact{Slot: 2, Blob: json.RawMessage(`{}`)}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.slotPath("u1", 5), []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.identityDir("u1"), "notes.txt"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	slots, err := s.Slots("u1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{2, 5}, slots); diff != "" {
		t.Errorf("Slots() (-want +got):\n%s", diff)
	}
	if list, _ := s.List("u1"); len(list) != 1 {
		t.Errorf("List() = %d summaries, want only the readable slot", len(list))
	}
}

func TestStore_WriteRejectsInvalid(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	if err := s.Write("", remote.SaveArtifact{Slot: 1}); err == nil {
		t.Error("Write() without identity succeeded")
	}
	if err := s.Write("u1", remote.SaveArtifact{Slot: 0}); err == nil {
		t.Error("Write() with slot 0 succeeded")
	}
}

func TestParseSlotFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"slot-1.json", 1, true},
		{"slot-12.json", 12, true},
		{"slot-0.json", 0, false},
		{"slot-x.json", 0, false},
		{"slot-1.json.tmp", 0, false},
		{"other.json", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseSlotFile(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseSlotFile(%q) = %d, %v; want %d, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}
