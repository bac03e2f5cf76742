package syncengine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
)

// ProgressResult is the outcome of UpdateProgress.
type ProgressResult struct {
	// Skipped is true when the record matched the last accepted one and no
	// call was made.
	Skipped bool
	// Percentage is the service-derived progress to display.
	Percentage float64
}

// fingerprint hashes the counters the player can change. The derived
// percentage and the timestamp are excluded.
func fingerprint(rec remote.ProgressRecord) string {
	canonical := struct {
		Coins                  int `json:"coins"`
		Score                  int `json:"score"`
		CurrentStage           int `json:"currentStage"`
		CompletedQuests        int `json:"completedQuests"`
		CorrectAnswers         int `json:"correctAnswers"`
		TotalQuestionsAnswered int `json:"totalQuestionsAnswered"`
		PlayTimeSeconds        int `json:"playTimeSeconds"`
	}{
		rec.Coins, rec.Score, rec.CurrentStage, rec.CompletedQuests,
		rec.CorrectAnswers, rec.TotalQuestionsAnswered, rec.PlayTimeSeconds,
	}
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// UpdateProgress sends rec unless it is identical to the last record the
// service accepted for identity. A failure clears the remembered fingerprint
// so the next call is sent unconditionally.
func (e *Engine) UpdateProgress(ctx context.Context, identity string, rec remote.ProgressRecord) (ProgressResult, error) {
	if identity == "" {
		return ProgressResult{}, ErrNoIdentity
	}
	if err := e.validate.Struct(rec); err != nil {
		return ProgressResult{}, fmt.Errorf("invalid progress record: %w", err)
	}

	fp := fingerprint(rec)

	e.mu.Lock()
	if e.fingerprints[identity] == fp {
		pct := e.displayed[identity]
		e.mu.Unlock()
		e.metrics.ProgressSkipped()
		return ProgressResult{Skipped: true, Percentage: pct}, nil
	}
	e.mu.Unlock()

	pct, err := e.remote.UpdateProgress(ctx, identity, rec)
	if err != nil {
		e.mu.Lock()
		delete(e.fingerprints, identity)
		e.mu.Unlock()
		e.logger.Warn("progress update failed", zap.String("identity", identity), zap.Error(err))
		return ProgressResult{}, fmt.Errorf("%w: %w", ErrSync, err)
	}

	e.mu.Lock()
	e.fingerprints[identity] = fp
	e.displayed[identity] = pct
	e.mu.Unlock()

	e.cache.Invalidate(identity, ProgressKey)
	e.notify.Notify(identity, NoticeProgressSaved)
	return ProgressResult{Percentage: pct}, nil
}

// LoadProgress returns the stored progress for identity, cache first.
// Records owned by another identity are rejected with ErrSecurityMismatch.
func (e *Engine) LoadProgress(ctx context.Context, identity string) (remote.ProgressRecord, error) {
	if identity == "" {
		return remote.ProgressRecord{}, ErrNoIdentity
	}

	if raw, ok := e.cache.Get(identity, ProgressKey); ok {
		var rec remote.ProgressRecord
		if e.decodeCached(identity, ProgressKey, raw, &rec) {
			return rec, nil
		}
	}

	v, err := e.share(ctx, flightKey("progress", identity), func(ctx context.Context) (any, error) {
		return e.remote.GetProgress(ctx, identity)
	})
	if err != nil {
		e.logger.Warn("progress fetch failed", zap.String("identity", identity), zap.Error(err))
		return remote.ProgressRecord{}, fmt.Errorf("load progress: %w", err)
	}

	snap := v.(remote.ProgressSnapshot)
	if snap.OwnerID != identity {
		return remote.ProgressRecord{}, e.ownershipFailed(identity, snap.OwnerID, "load progress")
	}

	e.cache.Set(identity, ProgressKey, snap.Record)
	e.setDisplayed(identity, snap.Record.ProgressPercentage)
	return snap.Record, nil
}
