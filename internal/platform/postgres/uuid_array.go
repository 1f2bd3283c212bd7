package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Target user sets are stored as a JSONB array of UUID strings. Going
// through JSON rather than a native uuid[] keeps the column readable from
// the CRUD side and avoids driver-specific array types on this path.

func uuidSlice(ids []uuid.UUID) any {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	b, err := json.Marshal(strs)
	if err != nil {
		// Marshalling a []string cannot fail; keep the signature honest.
		return nil
	}
	return b
}

func parseUUIDArray(data []byte) ([]uuid.UUID, error) {
	var strs []string
	if err := json.Unmarshal(data, &strs); err != nil {
		return nil, fmt.Errorf("decode uuid array: %w", err)
	}
	ids := make([]uuid.UUID, len(strs))
	for i, s := range strs {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse uuid %q: %w", s, err)
		}
		ids[i] = id
	}
	return ids, nil
}
