// Package remote defines the contract with the authoritative save service
// and an HTTP implementation of it.
//
// The service is the single source of truth for saves, progress and
// sessions. Every failure a caller can observe is classified into one of
// three sentinels:
//
//   - ErrNetwork: the call was rejected (transport failure, timeout,
//     non-2xx status or success=false)
//   - ErrData: the call went through but the body could not be decoded or
//     lacked a required field
//   - ErrNotFound: the service reported that the requested save does not exist
//
// Callers are expected to treat all three as recoverable.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Operation names, shared by the HTTP transport (as the action path),
// metrics labels and the in-memory fake.
const (
	OpSaveGame       = "save_game"
	OpLoadGame       = "load_game"
	OpListSaves      = "list_saves"
	OpStartSession   = "start_session"
	OpEndSession     = "end_session"
	OpUpdateProgress = "update_progress"
	OpGetProgress    = "get_progress"
)

var (
	ErrNetwork  = errors.New("remote request failed")
	ErrData     = errors.New("remote response malformed")
	ErrNotFound = errors.New("remote save not found")
)

// SaveMetadata describes a save for listings.
type SaveMetadata struct {
	Title             string    `json:"title"`
	Characters        []string  `json:"characters,omitempty"`
	PlaytimeFormatted string    `json:"playtimeFormatted,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// SaveArtifact is a full save as stored remotely. Blob is opaque to this
// layer.
type SaveArtifact struct {
	Slot      int             `json:"slot"`
	Blob      json.RawMessage `json:"saveData"`
	Metadata  SaveMetadata    `json:"metadata"`
	OwnerID   string          `json:"ownerId"`
	Timestamp time.Time       `json:"timestamp"`
}

// SaveSummary is one element of a save listing.
type SaveSummary struct {
	Slot      int          `json:"slot"`
	Metadata  SaveMetadata `json:"metadata"`
	Timestamp time.Time    `json:"timestamp"`
}

// ProgressRecord holds the player's progress counters. ProgressPercentage
// is derived by the service from CompletedQuests; clients only display it.
type ProgressRecord struct {
	Coins                  int       `json:"coins" validate:"gte=0"`
	Score                  int       `json:"score" validate:"gte=0"`
	CurrentStage           int       `json:"currentStage" validate:"gte=0"`
	CompletedQuests        int       `json:"completedQuests" validate:"gte=0"`
	CorrectAnswers         int       `json:"correctAnswers" validate:"gte=0,ltefield=TotalQuestionsAnswered"`
	TotalQuestionsAnswered int       `json:"totalQuestionsAnswered" validate:"gte=0"`
	PlayTimeSeconds        int       `json:"playTimeSeconds" validate:"gte=0"`
	ProgressPercentage     float64   `json:"progressPercentage"`
	LastUpdated            time.Time `json:"lastUpdated"`
}

// ProgressSnapshot is a progress record together with the identity the
// service says owns it.
type ProgressSnapshot struct {
	Record  ProgressRecord `json:"progress"`
	OwnerID string         `json:"ownerId"`
}

// Client is the remote save service.
type Client interface {
	SaveGame(ctx context.Context, identity string, slot int, blob json.RawMessage, meta SaveMetadata) error
	LoadGame(ctx context.Context, identity string, slot int) (SaveArtifact, error)
	ListSaves(ctx context.Context, identity string) ([]SaveSummary, error)
	StartSession(ctx context.Context, identity string) (string, error)
	EndSession(ctx context.Context, sessionID string) error
	// UpdateProgress returns the service-derived progress percentage.
	UpdateProgress(ctx context.Context, identity string, rec ProgressRecord) (float64, error)
	GetProgress(ctx context.Context, identity string) (ProgressSnapshot, error)
}
