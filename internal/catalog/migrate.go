package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
)

// backfillCategories are drawn from when a legacy product has no category.
var backfillCategories = []string{"Electronics", "Wearables", "Accessories", "Home"}

// migrateProducts upgrades a stored catalog document in place.
// A field counts as missing only when its key is absent, so stored zero values survive.
// Legacy records get string ids and imageRef in place of imageUrl.
func migrateProducts(rnd *rand.Rand) func(raw []byte) ([]byte, bool, error) {
	return func(raw []byte) ([]byte, bool, error) {
		var records []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, false, fmt.Errorf("catalog is not a list of products: %w", err)
		}
		if records == nil {
			return nil, false, fmt.Errorf("catalog is null")
		}

		changed := false
		for i, rec := range records {
			if rec == nil {
				return nil, false, fmt.Errorf("catalog entry %d is not an object", i)
			}
			c, err := migrateRecord(rec, rnd)
			if err != nil {
				return nil, false, fmt.Errorf("catalog entry %d: %w", i, err)
			}
			changed = changed || c
		}
		if !changed {
			return raw, false, nil
		}

		out, err := json.Marshal(records)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}
}

func migrateRecord(rec map[string]json.RawMessage, rnd *rand.Rand) (bool, error) {
	changed := false

	if id, ok := rec["id"]; ok {
		trimmed := bytes.TrimSpace(id)
		if len(trimmed) > 0 && trimmed[0] != '"' {
			var n json.Number
			if err := json.Unmarshal(trimmed, &n); err != nil {
				return false, fmt.Errorf("invalid id %s: %w", trimmed, err)
			}
			rec["id"] = mustMarshal(n.String())
			changed = true
		}
	}

	if legacy, ok := rec["imageUrl"]; ok {
		if _, has := rec["imageRef"]; !has {
			rec["imageRef"] = legacy
		}
		delete(rec, "imageUrl")
		changed = true
	}

	if _, ok := rec["category"]; !ok {
		rec["category"] = mustMarshal(backfillCategories[rnd.IntN(len(backfillCategories))])
		changed = true
	}
	if _, ok := rec["rating"]; !ok {
		rec["rating"] = mustMarshal(math.Round((3+rnd.Float64()*2)*10) / 10)
		changed = true
	}
	if _, ok := rec["reviewCount"]; !ok {
		rec["reviewCount"] = mustMarshal(5 + rnd.IntN(50))
		changed = true
	}

	return changed, nil
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
