package remote

import (
	"context"
	"encoding/json"
	"fmt"
)

// Offline is a Client for when no service is configured. Every call fails
// with ErrNetwork, so callers take their usual fallback paths.
type Offline struct{}

var _ Client = Offline{}

func offline(op string) error {
	return fmt.Errorf("%s: no server configured: %w", op, ErrNetwork)
}

func (Offline) SaveGame(context.Context, string, int, json.RawMessage, SaveMetadata) error {
	return offline(OpSaveGame)
}

func (Offline) LoadGame(context.Context, string, int) (SaveArtifact, error) {
	return SaveArtifact{}, offline(OpLoadGame)
}

func (Offline) ListSaves(context.Context, string) ([]SaveSummary, error) {
	return nil, offline(OpListSaves)
}

func (Offline) StartSession(context.Context, string) (string, error) {
	return "", offline(OpStartSession)
}

func (Offline) EndSession(context.Context, string) error {
	return offline(OpEndSession)
}

func (Offline) UpdateProgress(context.Context, string, ProgressRecord) (float64, error) {
	return 0, offline(OpUpdateProgress)
}

func (Offline) GetProgress(context.Context, string) (ProgressSnapshot, error) {
	return ProgressSnapshot{}, offline(OpGetProgress)
}
