package servers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/maxpert/serverconfig/document"
	"github.com/maxpert/serverconfig/hlc"
	"github.com/maxpert/serverconfig/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uuid1 = "5c3a2c7e-8f7e-4c55-9c1f-6a3b0de0a111"

func parse(t *testing.T, s string) document.Datum {
	t.Helper()
	var d document.Datum
	require.NoError(t, json.Unmarshal([]byte(s), &d))
	return d
}

func TestDecodeServerConfig_DeduplicatesTags(t *testing.T) {
	d := parse(t, `{"name":"s1","id":"`+uuid1+`","tags":["a","a","b"]}`)

	name, id, tags, err := DecodeServerConfig(d)
	require.Nil(t, err)
	assert.Equal(t, "s1", name)
	assert.Equal(t, uuid.MustParse(uuid1), id)
	assert.Equal(t, metadata.TagSet{"a", "b"}, tags)
	assert.Len(t, tags, 2)
}

func TestDecodeServerConfig_RoundTrip(t *testing.T) {
	docs := []string{
		`{"name":"s1","id":"` + uuid1 + `","tags":[]}`,
		`{"name":"db-01","id":"` + uuid1 + `","tags":["default"]}`,
		`{"name":"X_y","id":"` + uuid1 + `","tags":["z","a","m"]}`,
	}

	for _, s := range docs {
		d := parse(t, s)
		name, id, tags, err := DecodeServerConfig(d)
		require.Nil(t, err, s)

		encoded := EncodeServerConfig(name, id, tags)
		assert.Equal(t, d.Keys(), encoded.Keys())

		gotName, _ := encoded.Field(FieldName)
		wantName, _ := d.Field(FieldName)
		assert.True(t, gotName.Equal(wantName))

		gotID, _ := encoded.Field(FieldID)
		wantID, _ := d.Field(FieldID)
		assert.True(t, gotID.Equal(wantID))

		_, _, reTags, err := DecodeServerConfig(encoded)
		require.Nil(t, err)
		assert.True(t, tags.Equal(reTags))
	}
}

func TestDecodeServerConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"not an object", `["s1"]`, `Expected an object; got ["s1"].`},
		{"missing name", `{"id":"` + uuid1 + `","tags":[]}`, "Expected a field named `name`."},
		{"missing id", `{"name":"s1","tags":[]}`, "Expected a field named `id`."},
		{"missing tags", `{"name":"s1","id":"` + uuid1 + `"}`, "Expected a field named `tags`."},
		{"name not string", `{"name":5,"id":"` + uuid1 + `","tags":[]}`, "In `name`: Expected a server name; got 5."},
		{"name invalid", `{"name":"a b","id":"` + uuid1 + `","tags":[]}`, "In `name`: Invalid server name \"a b\". Use A-Z, a-z, 0-9, _ and - only."},
		{"bad id", `{"name":"s1","id":"nope","tags":[]}`, "In `id`: Expected a UUID; got \"nope\"."},
		{"tags not array", `{"name":"s1","id":"` + uuid1 + `","tags":"a"}`, "In `tags`: Expected an array; got \"a\"."},
		{"bad tag", `{"name":"s1","id":"` + uuid1 + `","tags":["ok",""]}`, "In `tags`: Invalid server tag \"\". Use A-Z, a-z, 0-9, _ and - only."},
		{"extra keys", `{"name":"s1","id":"` + uuid1 + `","tags":[],"zone":1,"cache":2}`, "Unexpected key(s) `cache`, `zone`."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := DecodeServerConfig(parse(t, tt.doc))
			require.NotNil(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestDecodeServerConfig_CheckOrder(t *testing.T) {
	// Every field is bad and an extra key is present; name is reported first
	d := parse(t, `{"name":1,"id":2,"tags":3,"extra":4}`)
	_, _, _, err := DecodeServerConfig(d)
	require.NotNil(t, err)
	assert.Equal(t, []string{FieldName}, err.Path())

	d = parse(t, `{"name":"s1","id":2,"tags":3,"extra":4}`)
	_, _, _, err = DecodeServerConfig(d)
	require.NotNil(t, err)
	assert.Equal(t, []string{FieldID}, err.Path())

	d = parse(t, `{"name":"s1","id":"`+uuid1+`","tags":3,"extra":4}`)
	_, _, _, err = DecodeServerConfig(d)
	require.NotNil(t, err)
	assert.Equal(t, []string{FieldTags}, err.Path())
}

func TestEncodeServerConfig_SortsTags(t *testing.T) {
	d := EncodeServerConfig("s1", uuid.MustParse(uuid1), metadata.TagSet{"b", "a"})
	assert.Equal(t, `{"id":"`+uuid1+`","name":"s1","tags":["a","b"]}`, d.Print())
}

func TestFormatRow(t *testing.T) {
	id := uuid.MustParse(uuid1)
	rec := metadata.NewServerRecord(id, "s1", metadata.NewTagSet("t"), hlc.Timestamp{WallTime: 1})

	row := FormatRow("s1", id, rec)
	assert.True(t, row.Equal(EncodeServerConfig("s1", id, metadata.TagSet{"t"})))
}

func TestLookup(t *testing.T) {
	id := uuid.MustParse(uuid1)
	live := metadata.NewServerRecord(id, "s1", nil, hlc.Timestamp{WallTime: 1})
	goneID := uuid.New()
	gone := metadata.NewServerRecord(goneID, "s2", nil, hlc.Timestamp{WallTime: 1})
	gone.MarkDeleted()
	snap := metadata.NewSnapshot(live, gone)

	name, gotID, rec, ok := Lookup(snap, document.String(uuid1))
	require.True(t, ok)
	assert.Equal(t, "s1", name)
	assert.Equal(t, id, gotID)
	assert.Same(t, live, rec)

	_, _, _, ok = Lookup(snap, document.String(goneID.String()))
	assert.False(t, ok, "tombstoned record must look absent")

	_, _, _, ok = Lookup(snap, document.String(uuid.New().String()))
	assert.False(t, ok)

	_, _, _, ok = Lookup(snap, document.String("not-a-uuid"))
	assert.False(t, ok)

	_, _, _, ok = Lookup(snap, document.Number(1))
	assert.False(t, ok)
}
