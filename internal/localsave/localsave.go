// Package localsave keeps device-local save slots on disk.
//
// Local slots are written before every cloud save and are the fallback when
// the remote service cannot be reached. Layout:
//
//	{dir}/saves/{escaped identity}/slot-{n}.json
//
// Each file holds a remote.SaveArtifact, written atomically.
package localsave

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/storage"
)

// ErrNotFound is returned when a slot has no local save.
var ErrNotFound = errors.New("local save not found")

// Store reads and writes local save slots under a data directory.
type Store struct {
	root string
}

// New returns a store rooted at {dataDir}/saves.
func New(dataDir string) *Store {
	return &Store{root: filepath.Join(dataDir, "saves")}
}

func (s *Store) identityDir(identity string) string {
	return filepath.Join(s.root, strings.ReplaceAll(url.PathEscape(identity), ".", "%2E"))
}

func (s *Store) slotPath(identity string, slot int) string {
	return filepath.Join(s.identityDir(identity), fmt.Sprintf("slot-%d.json", slot))
}

// Write stores art in its slot for identity, stamping the owner.
func (s *Store) Write(identity string, art remote.SaveArtifact) error {
	if identity == "" {
		return errors.New("identity is required")
	}
	if art.Slot < 1 {
		return fmt.Errorf("invalid slot %d", art.Slot)
	}
	art.OwnerID = identity

	// compact encoding keeps the opaque blob byte-for-byte
	data, err := json.Marshal(art)
	if err != nil {
		return fmt.Errorf("encode local slot %d: %w", art.Slot, err)
	}
	if err := storage.WriteAtomic(s.slotPath(identity, art.Slot), data); err != nil {
		return fmt.Errorf("write local slot %d: %w", art.Slot, err)
	}
	return nil
}

// Read loads a slot. Missing or unreadable files report ErrNotFound.
func (s *Store) Read(identity string, slot int) (remote.SaveArtifact, error) {
	var art remote.SaveArtifact
	if err := storage.LoadJSON(s.slotPath(identity, slot), &art); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return remote.SaveArtifact{}, fmt.Errorf("slot %d: %w", slot, ErrNotFound)
		}
		// Corrupted - treat as absent
		return remote.SaveArtifact{}, fmt.Errorf("slot %d unreadable (%v): %w", slot, err, ErrNotFound)
	}
	if art.OwnerID != "" && art.OwnerID != identity {
		return remote.SaveArtifact{}, fmt.Errorf("slot %d owned by another identity: %w", slot, ErrNotFound)
	}
	return art, nil
}

// List returns summaries of the readable local slots for identity, ordered
// by slot.
func (s *Store) List(identity string) ([]remote.SaveSummary, error) {
	slots, err := s.Slots(identity)
	if err != nil {
		return nil, err
	}

	var out []remote.SaveSummary
	for _, slot := range slots {
		art, err := s.Read(identity, slot)
		if err != nil {
			continue
		}
		out = append(out, remote.SaveSummary{Slot: art.Slot, Metadata: art.Metadata, Timestamp: art.Timestamp})
	}
	return out, nil
}

// Slots returns the slot numbers that have a file for identity, readable or
// not, sorted.
func (s *Store) Slots(identity string) ([]int, error) {
	entries, err := os.ReadDir(s.identityDir(identity))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var slots []int
	for _, e := range entries {
		slot, ok := parseSlotFile(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots, nil
}

// Delete removes a slot. Deleting a missing slot is not an error.
func (s *Store) Delete(identity string, slot int) error {
	return storage.Remove(s.slotPath(identity, slot))
}

func parseSlotFile(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "slot-")
	if !ok {
		return 0, false
	}
	num, ok := strings.CutSuffix(rest, ".json")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
