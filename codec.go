package main

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeBinary msgpack-encodes v using the same field names as the JSON protocol
func EncodeBinary(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBinary is the inverse of EncodeBinary
func DecodeBinary(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
