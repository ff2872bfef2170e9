// Package record defines the canonical records produced by every source and
// the rules that decide which of their fields are expensive.
//
// Core fields are rebuilt from the cheap listing on every run. Expensive
// fields are only written by enrichment and are carried forward by merge once
// they hold a value.
package record

// Status is the enrichment state derived from a record's expensive fields.
type Status string

// Enrichment states.
const (
	StatusPending  Status = "pending"
	StatusPartial  Status = "partial"
	StatusComplete Status = "complete"
)

// Record is implemented by every canonical record type.
type Record interface {
	IdentityKey() string
	NeedsEnrichment() bool
	EnrichmentStatus() Status
}

func deriveStatus(primary bool, secondary ...bool) Status {
	filled := 0
	for _, ok := range secondary {
		if ok {
			filled++
		}
	}
	switch {
	case primary && filled == len(secondary):
		return StatusComplete
	case primary || filled > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

func keepString(dst *string, existing string) {
	if existing != "" {
		*dst = existing
	}
}

func keepList(dst *[]string, existing []string) {
	if len(existing) > 0 {
		*dst = append([]string(nil), existing...)
	}
}
