// Package merge folds freshly parsed records onto their persisted
// counterparts without regressing expensive fields.
package merge

import "github.com/JakeFAU/devfeed-crawler/internal/record"

// Mergeable is a record that knows which of its fields to carry forward.
type Mergeable[T any] interface {
	record.Record
	CarryForward(existing T) T
}

// Merge returns fresh with every non-empty expensive field of existing
// copied over it. A nil existing returns fresh untouched.
func Merge[T Mergeable[T]](fresh T, existing *T) T {
	if existing == nil {
		return fresh
	}
	return fresh.CarryForward(*existing)
}

// Stats summarizes a Collection call.
type Stats struct {
	Fresh      int
	Known      int
	New        int
	Duplicates int
}

// Collection merges every fresh record with the persisted record sharing its
// identity key. Fresh records repeating an identity key already seen in this
// batch are dropped, first occurrence wins. Output keeps fresh parse order.
func Collection[T Mergeable[T]](fresh, existing []T) ([]T, Stats) {
	index := Index(existing)
	stats := Stats{Fresh: len(fresh)}
	seen := make(map[string]struct{}, len(fresh))
	out := make([]T, 0, len(fresh))
	for _, rec := range fresh {
		key := rec.IdentityKey()
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		prior, ok := index[key]
		if ok {
			stats.Known++
			out = append(out, Merge(rec, &prior))
			continue
		}
		stats.New++
		out = append(out, Merge(rec, nil))
	}
	return out, stats
}

// Index maps records by identity key. Later duplicates do not replace the
// first entry.
func Index[T record.Record](records []T) map[string]T {
	index := make(map[string]T, len(records))
	for _, rec := range records {
		key := rec.IdentityKey()
		if _, ok := index[key]; ok {
			continue
		}
		index[key] = rec
	}
	return index
}
