package domain

import (
	"encoding/json"
	"fmt"
)

// EncodeSnapshot serialises s as JSON, stamping the current version.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	s.Version = SnapshotVersion
	if s.Cart == nil {
		s.Cart = []CartLine{}
	}
	return json.Marshal(s)
}

// DecodeSnapshot parses a persisted snapshot. A missing version is read as
// version 1; newer versions and malformed payloads yield ErrCorruptSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
	if s.Version > SnapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: version %d is newer than %d", ErrCorruptSnapshot, s.Version, SnapshotVersion)
	}
	if s.Cart == nil {
		s.Cart = []CartLine{}
	}
	return s, nil
}
