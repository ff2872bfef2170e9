package identity

import (
	"strconv"

	"github.com/google/uuid"
)

// DeriveOpaqueID returns a name-based UUIDv5 for key. When the derived id is
// already present in seen, "-1", "-2", ... is appended to the key material
// until the id is unique. The result is recorded in seen when seen is non-nil.
func DeriveOpaqueID(key string, seen map[string]struct{}) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
	for counter := 1; taken(seen, id); counter++ {
		material := key + "-" + strconv.Itoa(counter)
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(material)).String()
	}
	if seen != nil {
		seen[id] = struct{}{}
	}
	return id
}

func taken(seen map[string]struct{}, id string) bool {
	if seen == nil {
		return false
	}
	_, ok := seen[id]
	return ok
}

// Assigner mints ids for one persisted collection within a single run.
type Assigner struct {
	seen map[string]struct{}
}

// NewAssigner returns an Assigner with an empty id set.
func NewAssigner() *Assigner {
	return &Assigner{seen: make(map[string]struct{})}
}

// Assign keeps current when it is set and not yet used in this run, otherwise
// it derives a fresh id from key.
func (a *Assigner) Assign(current, key string) string {
	if current != "" && !taken(a.seen, current) {
		a.seen[current] = struct{}{}
		return current
	}
	return DeriveOpaqueID(key, a.seen)
}
