// Package repositories implements SQLite persistence for the token event log.
//
// [TokenEventRepository] appends [models.TokenEvent] rows and lists them newest first.
// It also satisfies the services.EventRecorder interface so the token manager can write
// its audit trail without knowing about SQL.
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
