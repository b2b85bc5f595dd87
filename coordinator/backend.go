package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/maxpert/serverconfig/document"
	"github.com/maxpert/serverconfig/metadata"
	"github.com/maxpert/serverconfig/nameclient"
	"github.com/maxpert/serverconfig/servers"
	"github.com/maxpert/serverconfig/telemetry"
	"github.com/rs/zerolog/log"
)

// Row is a formatted table row with its primary key
type Row struct {
	ID  uuid.UUID
	Doc document.Datum
}

// ServerConfigBackend serves the server_config table. Rows are read from
// metadata snapshots; writes are applied one at a time, with renames and
// retags delegated to the name client and deletions joined locally.
type ServerConfigBackend struct {
	view  metadata.View
	names nameclient.Client
	queue *WriteQueue
}

// NewServerConfigBackend creates a backend whose write queue lives on loop
func NewServerConfigBackend(view metadata.View, names nameclient.Client, loop *HomeLoop) *ServerConfigBackend {
	return &ServerConfigBackend{
		view:  view,
		names: names,
		queue: NewWriteQueue(loop),
	}
}

// PrimaryKeyName returns the primary key field of the table
func (b *ServerConfigBackend) PrimaryKeyName() string {
	return servers.FieldID
}

// QueueDepth returns the number of writes holding or waiting for the token
func (b *ServerConfigBackend) QueueDepth() int {
	return b.queue.Depth()
}

// FormatRow renders the row of a server. It never fails.
func (b *ServerConfigBackend) FormatRow(ctx context.Context, name string, id uuid.UUID, rec *metadata.ServerRecord) (document.Datum, error) {
	telemetry.RowReadsTotal.Inc()
	return servers.FormatRow(name, id, rec), nil
}

// ReadAllRows returns the rows of every live server ordered by name
func (b *ServerConfigBackend) ReadAllRows(ctx context.Context) ([]Row, error) {
	live := b.view.Get().Live()
	rows := make([]Row, 0, len(live))
	for _, rec := range live {
		doc, err := b.FormatRow(ctx, rec.Name.Value, rec.ID, rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{ID: rec.ID, Doc: doc})
	}
	return rows, nil
}

// ReadRow returns the row with primary key pk, if it exists
func (b *ServerConfigBackend) ReadRow(ctx context.Context, pk document.Datum) (document.Datum, bool, error) {
	name, id, rec, ok := servers.Lookup(b.view.Get(), pk)
	if !ok {
		return document.Datum{}, false, nil
	}
	doc, err := b.FormatRow(ctx, name, id, rec)
	if err != nil {
		return document.Datum{}, false, err
	}
	return doc, true, nil
}

// WriteRow replaces the row with primary key pk by newValue, or deletes it
// when newValue is nil. The caller must never change a row's primary key;
// doing so panics. pkWasAutogenerated is accepted for the table interface
// and ignored: a generated key never matches an existing row, so such writes
// fail as inserts.
func (b *ServerConfigBackend) WriteRow(ctx context.Context, pk document.Datum, pkWasAutogenerated bool, newValue *document.Datum) error {
	op := "update"
	if newValue == nil {
		op = "delete"
	}
	metrics := NewWriteMetrics(op)

	token, err := b.queue.Acquire(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return metrics.RecordFailure("cancelled", &CancelledError{Err: err})
		}
		return metrics.RecordFailure("queue", fmt.Errorf("write queue unavailable: %w", err))
	}
	defer token.Release()

	// Taken after acquiring the token so every earlier write is visible
	snap := b.view.Get()

	name, id, rec, found := servers.Lookup(snap, pk)
	if !found {
		if newValue == nil {
			// Deleting a row that does not exist is fine
			return metrics.RecordNoop()
		}
		return NewWriteMetrics("insert").RecordFailure("illegal_insert", ErrIllegalInsert)
	}

	if newValue == nil {
		rec.MarkDeleted()
		b.view.Join(snap)
		log.Info().Str("server_id", id.String()).Str("name", name).Msg("Deleted server")
		return metrics.RecordSuccess()
	}

	newName, newID, newTags, convErr := servers.DecodeServerConfig(*newValue)
	if convErr != nil {
		return metrics.RecordFailure("schema", &SchemaViolationError{Err: convErr})
	}
	if newID != id {
		panic(fmt.Sprintf("server_config: primary key changed from %s to %s", id, newID))
	}

	nameChanged := newName != name
	tagsChanged := !newTags.Equal(rec.Tags.Value)
	if !nameChanged && !tagsChanged {
		return metrics.RecordNoop()
	}

	if nameChanged {
		if err := b.names.RenameServer(ctx, id, name, newName); err != nil {
			log.Debug().Err(err).Str("server_id", id.String()).Msg("Rename failed")
			return metrics.RecordFailure("external", &ExternalOperationError{Op: "rename", Err: err})
		}
		name = newName
	}

	if tagsChanged {
		if err := b.names.RetagServer(ctx, id, name, newTags); err != nil {
			log.Debug().Err(err).Str("server_id", id.String()).Msg("Retag failed")
			return metrics.RecordFailure("external", &ExternalOperationError{Op: "retag", Err: err})
		}
	}

	return metrics.RecordSuccess()
}
