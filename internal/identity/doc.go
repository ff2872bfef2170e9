// Package identity derives the canonical keys and stable identifiers used to
// deduplicate records across runs.
package identity
