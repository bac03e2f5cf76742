package doctor

import (
	"errors"
	"fmt"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache"
)

// Fix applies the fix action of every issue. Issues without an action are
// skipped. It returns how many issues were fixed and the joined errors of
// the ones that failed.
func Fix(env Env, issues []Issue) (int, error) {
	var (
		fixed   int
		errs    []error
		evicted bool
	)
	maxAge := env.StaleAfter
	if maxAge <= 0 {
		maxAge = cache.DefaultStaleAfter
	}

	for _, issue := range issues {
		switch issue.FixAction {
		case ActionEvict:
			// one pass clears every corrupt and over-age entry
			if !evicted {
				env.Cache.EvictStale(maxAge)
				evicted = true
			}
			fixed++
		case ActionInvalidate:
			env.Cache.Invalidate(issue.Identity)
			fixed++
		case ActionRemoveSlot:
			if err := env.Local.Delete(issue.Identity, issue.Slot); err != nil {
				errs = append(errs, fmt.Errorf("remove %s: %w", issue.Key, err))
				continue
			}
			fixed++
		case ActionResetIdentity:
			if err := env.Identity.Clear(); err != nil {
				errs = append(errs, fmt.Errorf("reset identity: %w", err))
				continue
			}
			fixed++
		}
	}
	return fixed, errors.Join(errs...)
}
