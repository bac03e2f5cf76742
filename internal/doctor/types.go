package doctor

import (
	"time"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/identity"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/localsave"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
)

// IssueCategory groups issues by type.
type IssueCategory string

const (
	// CategoryCache represents problems with cache entries.
	CategoryCache IssueCategory = "cache"
	// CategoryLocal represents unreadable local save slots.
	CategoryLocal IssueCategory = "local"
	// CategoryIdentity represents a damaged identity file.
	CategoryIdentity IssueCategory = "identity"
	// CategoryRemote represents save service problems.
	CategoryRemote IssueCategory = "remote"
)

// Fix actions.
const (
	ActionEvict         = "evict"            // drop corrupt and stale cache entries
	ActionInvalidate    = "invalidate_scope" // drop every entry of an identity
	ActionRemoveSlot    = "remove_slot"      // delete an unreadable local slot
	ActionResetIdentity = "reset_identity"   // remove the identity file
	ActionNone          = ""                 // nothing doctor can do
)

// Issue represents a problem detected by doctor.
type Issue struct {
	Key         string        // cache scope, slot or path
	Description string        // human-readable description
	FixAction   string        // what --fix would do
	Category    IssueCategory // issue category
	Identity    string        // owning identity, when relevant
	Slot        int           // local slot, for ActionRemoveSlot
}

// IssueStats tracks counts by category.
type IssueStats struct {
	CacheEntries  int // entries scanned
	CacheFresh    int // entries inside the freshness window
	CacheIssues   int // corrupt, stale or foreign entries
	LocalSlots    int // readable local slots
	LocalIssues   int // unreadable local slots
	RemoteChecked bool
	RemoteOK      bool
}

// Report is the outcome of Check.
type Report struct {
	Identity string
	Stats    IssueStats
	Issues   []Issue
}

// Env holds what doctor inspects.
type Env struct {
	Cache    *cache.Store
	Local    *localsave.Store
	Identity *identity.Resolver
	// DataDir locates the identity file.
	DataDir string
	// Client, when set, is probed with a listing call.
	Client remote.Client
	// StaleAfter is the age past which cache entries are reported.
	StaleAfter time.Duration
	Now        func() time.Time
}
