// Package metadata holds the cluster-replicated server metadata: one
// ServerRecord per server that ever joined, merged with a deterministic
// semilattice join so that every node converges on the same state.
package metadata

import (
	"sort"

	"github.com/google/uuid"
	"github.com/maxpert/serverconfig/hlc"
)

// TagSet is a sorted set of server tags
type TagSet []string

// NewTagSet sorts and deduplicates tags
func NewTagSet(tags ...string) TagSet {
	out := make(TagSet, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Equal reports set equality
func (s TagSet) Equal(o TagSet) bool {
	a, b := NewTagSet(s...), NewTagSet(o...)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Contains reports whether tag is a member
func (s TagSet) Contains(tag string) bool {
	for _, t := range s {
		if t == tag {
			return true
		}
	}
	return false
}

func (s TagSet) clone() TagSet {
	if s == nil {
		return nil
	}
	return append(TagSet(nil), s...)
}

// Versioned is a last-writer-wins register
type Versioned[T any] struct {
	Value T             `msgpack:"v"`
	Stamp hlc.Timestamp `msgpack:"ts"`
}

// NewVersioned stamps value with ts
func NewVersioned[T any](value T, ts hlc.Timestamp) Versioned[T] {
	return Versioned[T]{Value: value, Stamp: ts}
}

// ServerRecord is the metadata of one server. Records are never removed:
// deletion sets the Deleted tombstone, which no later join can clear.
type ServerRecord struct {
	ID      uuid.UUID
	Name    Versioned[string]
	Tags    Versioned[TagSet]
	Deleted bool
}

// NewServerRecord creates a live record with both fields stamped at ts
func NewServerRecord(id uuid.UUID, name string, tags TagSet, ts hlc.Timestamp) *ServerRecord {
	return &ServerRecord{
		ID:   id,
		Name: NewVersioned(name, ts),
		Tags: NewVersioned(NewTagSet(tags...), ts),
	}
}

// MarkDeleted tombstones the record
func (r *ServerRecord) MarkDeleted() {
	r.Deleted = true
}

// Clone returns a deep copy
func (r *ServerRecord) Clone() *ServerRecord {
	cp := *r
	cp.Tags.Value = r.Tags.Value.clone()
	return &cp
}

// Join merges other into r and reports whether r changed
func (r *ServerRecord) Join(other *ServerRecord) bool {
	changed := false

	if other.Deleted && !r.Deleted {
		r.Deleted = true
		changed = true
	}
	if hlc.After(other.Name.Stamp, r.Name.Stamp) {
		r.Name = other.Name
		changed = true
	}
	if hlc.After(other.Tags.Stamp, r.Tags.Stamp) {
		r.Tags = Versioned[TagSet]{Value: other.Tags.Value.clone(), Stamp: other.Tags.Stamp}
		changed = true
	}

	return changed
}

// Snapshot is a point-in-time copy of every server record
type Snapshot struct {
	Servers map[uuid.UUID]*ServerRecord
}

// NewSnapshot creates a snapshot holding records
func NewSnapshot(records ...*ServerRecord) *Snapshot {
	s := &Snapshot{Servers: make(map[uuid.UUID]*ServerRecord, len(records))}
	for _, r := range records {
		s.Servers[r.ID] = r
	}
	return s
}

// Clone returns a deep copy that shares nothing with s
func (s *Snapshot) Clone() *Snapshot {
	cp := &Snapshot{Servers: make(map[uuid.UUID]*ServerRecord, len(s.Servers))}
	for id, r := range s.Servers {
		cp.Servers[id] = r.Clone()
	}
	return cp
}

// Join merges other into s and returns the IDs of records that changed, in
// sorted order
func (s *Snapshot) Join(other *Snapshot) []uuid.UUID {
	var changed []uuid.UUID
	for id, theirs := range other.Servers {
		ours, ok := s.Servers[id]
		if !ok {
			s.Servers[id] = theirs.Clone()
			changed = append(changed, id)
			continue
		}
		if ours.Join(theirs) {
			changed = append(changed, id)
		}
	}
	sort.Slice(changed, func(i, j int) bool {
		return changed[i].String() < changed[j].String()
	})
	return changed
}

// Live returns the non-deleted records sorted by name, then ID
func (s *Snapshot) Live() []*ServerRecord {
	out := make([]*ServerRecord, 0, len(s.Servers))
	for _, r := range s.Servers {
		if !r.Deleted {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name.Value != out[j].Name.Value {
			return out[i].Name.Value < out[j].Name.Value
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Counts returns the number of live and deleted records
func (s *Snapshot) Counts() (live, deleted int) {
	for _, r := range s.Servers {
		if r.Deleted {
			deleted++
		} else {
			live++
		}
	}
	return live, deleted
}
