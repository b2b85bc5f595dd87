// Package encoding provides centralized msgpack serialization for persisted
// server metadata and for documents exchanged in msgpack form.
// ALL msgpack operations MUST go through this package to ensure consistent behavior.
//
// Thread Safety: all functions are safe for concurrent use.
package encoding

import (
	"bytes"
	"fmt"

	"github.com/maxpert/serverconfig/document"
	"github.com/vmihailenco/msgpack/v5"
)

// Marshal encodes a value to msgpack format.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	// Sorted map keys keep encoded documents byte-stable
	enc.SetSortMapKeys(true)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes msgpack data.
// When decoding into interface{}, strings are preserved as Go strings (not []byte).
func Unmarshal(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	return dec.Decode(v)
}

// MarshalDocument encodes a document as a plain msgpack value.
func MarshalDocument(d document.Datum) ([]byte, error) {
	return Marshal(d.ToNative())
}

// UnmarshalDocument decodes a msgpack value into a document.
func UnmarshalDocument(data []byte) (document.Datum, error) {
	var raw interface{}
	if err := Unmarshal(data, &raw); err != nil {
		return document.Datum{}, fmt.Errorf("failed to decode msgpack document: %w", err)
	}
	return document.FromNative(raw)
}
