package persist

import (
	"fmt"

	"github.com/fgferre/asteroids-roguefield/internal/replay"
	"github.com/fgferre/asteroids-roguefield/internal/world"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshots and journals are stored as msgpack blobs. Both carry their own
// version field; checking it is left to the hub and the replayer.

func EncodeSnapshot(s *world.Snapshot) ([]byte, error) {
	b, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

func DecodeSnapshot(b []byte) (*world.Snapshot, error) {
	var s world.Snapshot
	if err := msgpack.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

func EncodeJournal(j *replay.Journal) ([]byte, error) {
	b, err := msgpack.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("encode journal: %w", err)
	}
	return b, nil
}

func DecodeJournal(b []byte) (*replay.Journal, error) {
	var j replay.Journal
	if err := msgpack.Unmarshal(b, &j); err != nil {
		return nil, fmt.Errorf("decode journal: %w", err)
	}
	return &j, nil
}
