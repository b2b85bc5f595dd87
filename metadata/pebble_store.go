package metadata

import (
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/maxpert/serverconfig/encoding"
	"github.com/maxpert/serverconfig/hlc"
	"github.com/rs/zerolog/log"
)

// Key prefixes for Pebble
const (
	pebblePrefixServer = "/server/" // /server/{uuid}
)

// storedRecord is the persisted form of a ServerRecord
type storedRecord struct {
	ID        string        `msgpack:"id"`
	Name      string        `msgpack:"name"`
	NameStamp hlc.Timestamp `msgpack:"name_ts"`
	Tags      []string      `msgpack:"tags"`
	TagsStamp hlc.Timestamp `msgpack:"tags_ts"`
	Deleted   bool          `msgpack:"deleted"`
}

func toStored(r *ServerRecord) storedRecord {
	return storedRecord{
		ID:        r.ID.String(),
		Name:      r.Name.Value,
		NameStamp: r.Name.Stamp,
		Tags:      []string(r.Tags.Value),
		TagsStamp: r.Tags.Stamp,
		Deleted:   r.Deleted,
	}
}

func (s storedRecord) record() (*ServerRecord, error) {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid stored server id %q: %w", s.ID, err)
	}
	return &ServerRecord{
		ID:      id,
		Name:    NewVersioned(s.Name, s.NameStamp),
		Tags:    NewVersioned(NewTagSet(s.Tags...), s.TagsStamp),
		Deleted: s.Deleted,
	}, nil
}

// PebbleStoreOptions configures the pebble database
type PebbleStoreOptions struct {
	CacheSizeMB int64
}

// PebbleStore implements Store using Pebble
type PebbleStore struct {
	db     *pebble.DB
	path   string
	closed atomic.Bool
}

// Ensure PebbleStore implements Store
var _ Store = (*PebbleStore)(nil)

// pebbleLogger wraps zerolog for Pebble
type pebbleLogger struct{}

func (l *pebbleLogger) Infof(format string, args ...interface{}) {
	log.Debug().Msgf("[pebble] "+format, args...)
}

func (l *pebbleLogger) Errorf(format string, args ...interface{}) {
	log.Error().Msgf("[pebble] "+format, args...)
}

func (l *pebbleLogger) Fatalf(format string, args ...interface{}) {
	log.Fatal().Msgf("[pebble] "+format, args...)
}

// OpenPebbleStore opens or creates the metadata database at path
func OpenPebbleStore(path string, opts PebbleStoreOptions) (*PebbleStore, error) {
	if opts.CacheSizeMB < 1 {
		opts.CacheSizeMB = 8
	}
	cache := pebble.NewCache(opts.CacheSizeMB << 20)
	defer cache.Unref() // DB will hold reference

	db, err := pebble.Open(path, &pebble.Options{
		Cache:  cache,
		Logger: &pebbleLogger{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db: %w", err)
	}

	return &PebbleStore{db: db, path: path}, nil
}

func serverKey(id uuid.UUID) []byte {
	return []byte(pebblePrefixServer + id.String())
}

// prefixUpperBound returns the exclusive upper bound for a prefix scan
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix)+8)
	copy(upper, prefix)
	for i := len(prefix); i < len(upper); i++ {
		upper[i] = 0xFF
	}
	return upper
}

// Load reads every persisted record
func (s *PebbleStore) Load() (*Snapshot, error) {
	prefix := []byte(pebblePrefixServer)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	snap := NewSnapshot()
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		val, err := iter.ValueAndErr()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", iter.Key(), err)
		}

		var stored storedRecord
		if err := encoding.Unmarshal(val, &stored); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", iter.Key(), err)
		}
		rec, err := stored.record()
		if err != nil {
			return nil, err
		}
		snap.Servers[rec.ID] = rec
	}

	return snap, iter.Error()
}

// Save writes records in a single synced batch
func (s *PebbleStore) Save(records []*ServerRecord) error {
	if s.closed.Load() {
		return fmt.Errorf("pebble store %s is closed", s.path)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, r := range records {
		val, err := encoding.Marshal(toStored(r))
		if err != nil {
			return fmt.Errorf("failed to encode server %s: %w", r.ID, err)
		}
		if err := batch.Set(serverKey(r.ID), val, nil); err != nil {
			return err
		}
	}

	return batch.Commit(pebble.Sync)
}

// Close closes the database. Safe to call more than once.
func (s *PebbleStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
