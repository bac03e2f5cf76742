package doctor

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/identity"
)

// remoteProbeTimeout bounds the service check.
const remoteProbeTimeout = 5 * time.Second

// Check inspects env without modifying anything.
func Check(ctx context.Context, env Env) Report {
	now := time.Now
	if env.Now != nil {
		now = env.Now
	}

	var r Report
	r.Identity, _ = env.Identity.Resolve()

	r.Issues = append(r.Issues, checkIdentity(env)...)

	cacheIssues := checkCache(env, r.Identity, now(), &r.Stats)
	r.Issues = append(r.Issues, cacheIssues...)

	if r.Identity != "" && env.Local != nil {
		localIssues := checkLocal(env, r.Identity, &r.Stats)
		r.Issues = append(r.Issues, localIssues...)
	}

	if env.Client != nil && r.Identity != "" {
		if issue, ok := checkRemote(ctx, env, r.Identity); ok {
			r.Issues = append(r.Issues, issue)
		} else {
			r.Stats.RemoteOK = true
		}
		r.Stats.RemoteChecked = true
	}

	return r
}

// checkIdentity reports an identity file that exists but does not parse.
func checkIdentity(env Env) []Issue {
	path := identity.Path(env.DataDir)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if env.Identity.Persisted() != "" {
		return nil
	}
	return []Issue{{
		Key:         path,
		Description: "identity file is unreadable or empty",
		FixAction:   ActionResetIdentity,
		Category:    CategoryIdentity,
	}}
}

// checkCache reports corrupt and over-age entries, and scopes that belong
// to an identity other than the active one.
func checkCache(env Env, active string, now time.Time, stats *IssueStats) []Issue {
	st, err := env.Cache.Stats()
	if err != nil {
		return []Issue{{
			Key:         "cache",
			Description: fmt.Sprintf("cache cannot be scanned: %v", err),
			Category:    CategoryCache,
		}}
	}

	ids := make([]string, 0, len(st.Scopes))
	for id := range st.Scopes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var issues []Issue
	for _, id := range ids {
		sc := st.Scopes[id]
		stats.CacheEntries += sc.Entries
		stats.CacheFresh += sc.Fresh

		if id != "" && id != active {
			issues = append(issues, Issue{
				Key:         id,
				Description: fmt.Sprintf("%d entries left by inactive identity", sc.Entries),
				FixAction:   ActionInvalidate,
				Category:    CategoryCache,
				Identity:    id,
			})
			stats.CacheIssues += sc.Entries
			continue
		}
		if sc.Corrupt > 0 {
			issues = append(issues, Issue{
				Key:         scopeName(id),
				Description: fmt.Sprintf("%d corrupt entries", sc.Corrupt),
				FixAction:   ActionEvict,
				Category:    CategoryCache,
				Identity:    id,
			})
			stats.CacheIssues += sc.Corrupt
		}
		if env.StaleAfter > 0 && !sc.Oldest.IsZero() && now.Sub(sc.Oldest) > env.StaleAfter {
			issues = append(issues, Issue{
				Key:         scopeName(id),
				Description: fmt.Sprintf("entries older than %s", env.StaleAfter),
				FixAction:   ActionEvict,
				Category:    CategoryCache,
				Identity:    id,
			})
			stats.CacheIssues++
		}
	}
	return issues
}

// checkLocal reports slot files of identity that cannot be read back.
func checkLocal(env Env, id string, stats *IssueStats) []Issue {
	slots, err := env.Local.Slots(id)
	if err != nil {
		return []Issue{{
			Key:         "saves",
			Description: fmt.Sprintf("local saves cannot be listed: %v", err),
			Category:    CategoryLocal,
			Identity:    id,
		}}
	}

	var issues []Issue
	for _, slot := range slots {
		if _, err := env.Local.Read(id, slot); err != nil {
			issues = append(issues, Issue{
				Key:         fmt.Sprintf("slot %d", slot),
				Description: "local save is unreadable",
				FixAction:   ActionRemoveSlot,
				Category:    CategoryLocal,
				Identity:    id,
				Slot:        slot,
			})
			stats.LocalIssues++
			continue
		}
		stats.LocalSlots++
	}
	return issues
}

// checkRemote probes the service with a listing call.
func checkRemote(ctx context.Context, env Env, id string) (Issue, bool) {
	ctx, cancel := context.WithTimeout(ctx, remoteProbeTimeout)
	defer cancel()

	if _, err := env.Client.ListSaves(ctx, id); err != nil {
		return Issue{
			Key:         "service",
			Description: fmt.Sprintf("save service unavailable: %v", err),
			Category:    CategoryRemote,
			Identity:    id,
		}, true
	}
	return Issue{}, false
}

func scopeName(id string) string {
	if id == "" {
		return "(unscoped)"
	}
	return id
}
