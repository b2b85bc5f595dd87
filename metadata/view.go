package metadata

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/maxpert/serverconfig/notify"
	"github.com/maxpert/serverconfig/telemetry"
	"github.com/rs/zerolog/log"
)

// CollectionServers is the notify collection signalled on server changes
const CollectionServers = "servers"

// View is a handle onto the shared server metadata
type View interface {
	// Get returns a point-in-time copy that the caller may mutate freely
	Get() *Snapshot
	// Join merges proposed into the shared state. It never fails and the
	// result may differ from proposed if other joins raced with it.
	Join(proposed *Snapshot)
}

// Store persists server records across restarts
type Store interface {
	Load() (*Snapshot, error)
	Save(records []*ServerRecord) error
	Close() error
}

// SharedView is the in-process View. Reads never block; joins are
// serialized so each one folds into the latest state.
type SharedView struct {
	current atomic.Pointer[Snapshot]
	joinMu  sync.Mutex
	store   Store
	hub     *notify.Hub
}

// Ensure SharedView implements View
var _ View = (*SharedView)(nil)

// NewSharedView creates a view seeded with initial. store may be nil.
func NewSharedView(initial *Snapshot, store Store) *SharedView {
	if initial == nil {
		initial = NewSnapshot()
	}
	v := &SharedView{
		store: store,
		hub:   notify.NewHub(),
	}
	v.current.Store(initial.Clone())
	return v
}

// OpenSharedView loads the persisted snapshot from store and serves it
func OpenSharedView(store Store) (*SharedView, error) {
	snap, err := store.Load()
	if err != nil {
		return nil, err
	}
	live, deleted := snap.Counts()
	log.Info().Int("live", live).Int("deleted", deleted).Msg("Loaded server metadata")
	return NewSharedView(snap, store), nil
}

// Get returns a deep copy of the current snapshot
func (v *SharedView) Get() *Snapshot {
	return v.current.Load().Clone()
}

// Join merges proposed into the current snapshot
func (v *SharedView) Join(proposed *Snapshot) {
	v.joinMu.Lock()
	next := v.current.Load().Clone()
	changed := next.Join(proposed)
	if len(changed) == 0 {
		v.joinMu.Unlock()
		telemetry.MetadataJoinsTotal.With("unchanged").Inc()
		return
	}

	v.persist(next, changed)
	v.current.Store(next)
	v.joinMu.Unlock()

	telemetry.MetadataJoinsTotal.With("changed").Inc()
	log.Debug().Int("changed", len(changed)).Msg("Joined server metadata")
	v.hub.Signal(CollectionServers, changed)
}

func (v *SharedView) persist(snap *Snapshot, changed []uuid.UUID) {
	if v.store == nil {
		return
	}
	records := make([]*ServerRecord, 0, len(changed))
	for _, id := range changed {
		records = append(records, snap.Servers[id])
	}
	if err := v.store.Save(records); err != nil {
		telemetry.MetadataStoreErrorsTotal.Inc()
		log.Error().Err(err).Int("records", len(records)).Msg("Failed to persist server metadata")
	}
}

// Subscribe returns a channel of change signals and its cancel function
func (v *SharedView) Subscribe() (<-chan notify.Signal, func()) {
	return v.hub.Subscribe(notify.Filter{Collections: []string{CollectionServers}})
}

// ServerCounts reports live and deleted records
func (v *SharedView) ServerCounts() (live, deleted int) {
	return v.current.Load().Counts()
}

// Close releases the backing store
func (v *SharedView) Close() error {
	if v.store == nil {
		return nil
	}
	return v.store.Close()
}

// EnsureServer adds rec to view unless a record with its ID already exists.
// It reports whether rec was added.
func EnsureServer(view View, rec *ServerRecord) bool {
	if _, ok := view.Get().Servers[rec.ID]; ok {
		return false
	}
	view.Join(NewSnapshot(rec.Clone()))
	return true
}
