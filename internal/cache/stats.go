package cache

import "time"

// ScopeStats summarizes the entries of one identity.
type ScopeStats struct {
	Entries int
	Fresh   int
	Stale   int
	Corrupt int
	Oldest  time.Time
}

// Stats summarizes the whole cache, keyed by identity.
// Keys that do not follow the scope scheme are counted under "".
type Stats struct {
	Total  int
	Scopes map[string]*ScopeStats
}

// Stats scans every entry without modifying anything.
func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.backend.Keys("")
	if err != nil {
		return Stats{}, err
	}

	now := s.opts.Now()
	st := Stats{Scopes: make(map[string]*ScopeStats)}
	for _, k := range keys {
		raw, ok, err := s.backend.Get(k)
		if err != nil || !ok {
			continue
		}
		identity, _, _ := ParseScopeKey(k)
		sc := st.Scopes[identity]
		if sc == nil {
			sc = &ScopeStats{}
			st.Scopes[identity] = sc
		}
		st.Total++
		sc.Entries++

		entry, err := decodeEntry(raw)
		switch {
		case err != nil:
			sc.Corrupt++
			continue
		case entry.Age(now) < s.opts.Freshness:
			sc.Fresh++
		default:
			sc.Stale++
		}
		if sc.Oldest.IsZero() || entry.WrittenAt.Before(sc.Oldest) {
			sc.Oldest = entry.WrittenAt
		}
	}
	return st, nil
}
