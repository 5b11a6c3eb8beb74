// internal/storage/codec.go
package storage

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"shelfmate/internal/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func encodeRecord(rec *library.UserRecord) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode user record: %w", err)
	}
	return raw, nil
}

func decodeRecord(raw []byte) (*library.UserRecord, error) {
	rec := &library.UserRecord{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("decode user record: %w", err)
	}
	rec.Normalize()
	return rec, nil
}
