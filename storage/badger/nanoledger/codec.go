package nanoledger

import (
	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack"
)

// encode msgpack-serializes entity and snappy-compresses the result, the
// same row encoding as the source's storage/badger/operation package.
func encode(entity interface{}) ([]byte, error) {
	val, err := msgpack.Marshal(entity)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, val), nil
}

// decode reverses encode into entity, which must be a pointer.
func decode(val []byte, entity interface{}) error {
	raw, err := snappy.Decode(nil, val)
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(raw, entity)
}
