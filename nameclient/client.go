// Package nameclient performs server renames and retags. Both are
// cluster-wide operations: a rename must not collide with the name of any
// other live server, so they are not applied as plain local joins.
package nameclient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maxpert/serverconfig/hlc"
	"github.com/maxpert/serverconfig/metadata"
	"github.com/maxpert/serverconfig/telemetry"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
)

// Client renames and retags servers. Errors carry a human readable reason
// meant to be shown to the caller unchanged.
type Client interface {
	RenameServer(ctx context.Context, id uuid.UUID, oldName, newName string) error
	RetagServer(ctx context.Context, id uuid.UUID, currentName string, tags metadata.TagSet) error
}

// LocalClient applies renames and retags to a metadata view owned by this
// process
type LocalClient struct {
	view  metadata.View
	clock *hlc.Clock

	// servers with a rename or retag in progress
	busy *xsync.MapOf[uuid.UUID, string]
}

// Ensure LocalClient implements Client
var _ Client = (*LocalClient)(nil)

// NewLocalClient creates a client over view stamping changes with clock
func NewLocalClient(view metadata.View, clock *hlc.Clock) *LocalClient {
	return &LocalClient{
		view:  view,
		clock: clock,
		busy:  xsync.NewMapOf[uuid.UUID, string](),
	}
}

// RenameServer renames server id from oldName to newName
func (c *LocalClient) RenameServer(ctx context.Context, id uuid.UUID, oldName, newName string) (err error) {
	start := time.Now()
	defer func() { recordOp("rename", start, err) }()

	release, err := c.begin(id, "rename", oldName)
	if err != nil {
		return err
	}
	defer release()

	snap := c.view.Get()
	rec, err := liveRecord(snap, id, oldName)
	if err != nil {
		return err
	}
	if rec.Name.Value == newName {
		return nil
	}

	for _, other := range snap.Live() {
		if other.ID != id && other.Name.Value == newName {
			return fmt.Errorf("Cannot rename server `%s` to `%s` because server `%s` already exists.", oldName, newName, newName)
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("Rename of server `%s` was interrupted: %w", oldName, err)
	}

	// The stored stamp may be ahead of the local clock; the new value must win the join
	rec.Name = metadata.NewVersioned(newName, c.clock.Update(rec.Name.Stamp))
	c.view.Join(metadata.NewSnapshot(rec))

	log.Info().
		Str("server_id", id.String()).
		Str("old_name", oldName).
		Str("new_name", newName).
		Msg("Renamed server")
	return nil
}

// RetagServer replaces the tags of server id, currently named currentName
func (c *LocalClient) RetagServer(ctx context.Context, id uuid.UUID, currentName string, tags metadata.TagSet) (err error) {
	start := time.Now()
	defer func() { recordOp("retag", start, err) }()

	release, err := c.begin(id, "retag", currentName)
	if err != nil {
		return err
	}
	defer release()

	rec, err := liveRecord(c.view.Get(), id, currentName)
	if err != nil {
		return err
	}
	tags = metadata.NewTagSet(tags...)
	if rec.Tags.Value.Equal(tags) {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("Retag of server `%s` was interrupted: %w", currentName, err)
	}

	rec.Tags = metadata.NewVersioned(tags, c.clock.Update(rec.Tags.Stamp))
	c.view.Join(metadata.NewSnapshot(rec))

	log.Info().
		Str("server_id", id.String()).
		Str("name", currentName).
		Strs("tags", tags).
		Msg("Retagged server")
	return nil
}

// begin marks id busy for op and returns the function that clears it
func (c *LocalClient) begin(id uuid.UUID, op, name string) (func(), error) {
	if running, loaded := c.busy.LoadOrStore(id, op); loaded {
		return nil, fmt.Errorf("Cannot %s server `%s` because a %s of it is already in progress.", op, name, running)
	}
	return func() { c.busy.Delete(id) }, nil
}

// liveRecord returns a copy of the live record id, which must still be named
// name
func liveRecord(snap *metadata.Snapshot, id uuid.UUID, name string) (*metadata.ServerRecord, error) {
	rec, ok := snap.Servers[id]
	if !ok || rec.Deleted {
		return nil, fmt.Errorf("Server `%s` was permanently removed from the cluster.", name)
	}
	if rec.Name.Value != name {
		return nil, fmt.Errorf("Server `%s` was renamed to `%s` by another client. Please try again.", name, rec.Name.Value)
	}
	return rec.Clone(), nil
}

func recordOp(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	telemetry.NameOpsTotal.With(op, result).Inc()
	telemetry.NameOpDurationSeconds.With(op).Observe(time.Since(start).Seconds())
}
