package store

import (
	"context"
	"sort"
	"strconv"

	"github.com/wo-aiml-user/whatsapp-bot/internal/model"
)

// MessageStore is the append-only conversation log, partitioned by the
// contact's normalized phone number. Records are never updated or
// deleted; duplicate webhook deliveries may append duplicate records.
type MessageStore interface {
	// Append adds one record to the number's conversation, creating the
	// conversation on first write.
	Append(ctx context.Context, number string, rec model.Record) error

	// Query returns the number's records newest-first by timestamp.
	// limit=0 means unbounded; limit>0 caps to the most recent records.
	// An unknown number yields an empty slice, not an error.
	Query(ctx context.Context, number string, limit int) ([]model.Record, error)

	// Exists reports whether the number has any stored records.
	Exists(ctx context.Context, number string) (bool, error)

	// Latest returns the newest records across all conversations,
	// primarily for diagnostics.
	Latest(ctx context.Context, limit int) ([]model.Record, error)
}

// Timestamps are provider epoch-seconds strings kept verbatim.
// Non-numeric values sort after numeric ones.
func tsValue(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

func sortNewestFirst(recs []model.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		vi, oki := tsValue(recs[i].Timestamp)
		vj, okj := tsValue(recs[j].Timestamp)
		if oki && okj {
			return vi > vj
		}
		return oki && !okj
	})
}
