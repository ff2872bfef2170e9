// Package enrich turns a record's page into structured AI output.
//
// A Gateway scrapes the page, waits out the politeness delay, prompts the
// model for JSON and decodes the answer into a typed payload. Failures never
// reach the caller: the gateway returns nil when there is nothing to work
// with and a fallback payload when the model could not be used. Quota and
// model-not-found errors latch a Breaker that is owned by the run, so later
// records skip the model entirely.
package enrich
