// Package servers converts between server_config documents and server
// metadata records.
package servers

import (
	"github.com/google/uuid"
	"github.com/maxpert/serverconfig/document"
	"github.com/maxpert/serverconfig/metadata"
)

// Field names of a server_config row
const (
	FieldName = "name"
	FieldID   = "id"
	FieldTags = "tags"
)

func convertTag(d document.Datum) (string, *document.ConversionError) {
	return document.ConvertName(d, "server tag")
}

// DecodeServerConfig validates a row document of the form
// {name, id, tags}. Fields are checked in the order name, id, tags and
// unknown keys are reported last, so the first failure is always the same
// for a given document. Nothing is returned on failure.
func DecodeServerConfig(d document.Datum) (string, uuid.UUID, metadata.TagSet, *document.ConversionError) {
	conv, err := document.NewObjectConverter(d)
	if err != nil {
		return "", uuid.Nil, nil, err
	}

	nameDatum, err := conv.Get(FieldName)
	if err != nil {
		return "", uuid.Nil, nil, err
	}
	name, err := document.ConvertName(nameDatum, "server name")
	if err != nil {
		return "", uuid.Nil, nil, err.In(FieldName)
	}

	idDatum, err := conv.Get(FieldID)
	if err != nil {
		return "", uuid.Nil, nil, err
	}
	id, err := document.ConvertUUID(idDatum)
	if err != nil {
		return "", uuid.Nil, nil, err.In(FieldID)
	}

	tagsDatum, err := conv.Get(FieldTags)
	if err != nil {
		return "", uuid.Nil, nil, err
	}
	tags, err := document.ConvertSet(tagsDatum, convertTag, true)
	if err != nil {
		return "", uuid.Nil, nil, err.In(FieldTags)
	}

	if err := conv.CheckNoExtraKeys(); err != nil {
		return "", uuid.Nil, nil, err
	}

	return name, id, metadata.NewTagSet(tags...), nil
}

// EncodeServerConfig builds the row document for a server. Tags come out
// sorted.
func EncodeServerConfig(name string, id uuid.UUID, tags metadata.TagSet) document.Datum {
	return document.Object(map[string]document.Datum{
		FieldName: document.NameToDatum(name),
		FieldID:   document.UUIDToDatum(id),
		FieldTags: document.SetToDatum(metadata.NewTagSet(tags...), document.NameToDatum),
	})
}

// FormatRow renders the read-side row of a server
func FormatRow(name string, id uuid.UUID, rec *metadata.ServerRecord) document.Datum {
	return EncodeServerConfig(name, id, rec.Tags.Value)
}

// Lookup resolves a primary key document to a live server. A key that is
// not a UUID, an unknown ID and a deleted server all report not found.
func Lookup(snap *metadata.Snapshot, pk document.Datum) (string, uuid.UUID, *metadata.ServerRecord, bool) {
	id, err := document.ConvertUUID(pk)
	if err != nil {
		return "", uuid.Nil, nil, false
	}
	rec, ok := snap.Servers[id]
	if !ok || rec.Deleted {
		return "", uuid.Nil, nil, false
	}
	return rec.Name.Value, id, rec, true
}
