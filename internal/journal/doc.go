// Package journal records scenario runs in SQLite.
//
// A run row is written by BeginRun and completed by FinishRun; every event
// the environment emits in between becomes one entries row. The journal is
// append-only and never feeds state back into an environment.
//
// # Ordering and identity
//
//   - Entries are ordered by seq, the environment's logical clock, then id.
//   - Entry ids are value.EventID(run_id, seq), so replaying a run with a
//     fixed run id writes the same rows and the inserts are no-ops.
//   - Entry digests are value.Digest of the canonical snapshot of the value
//     involved, so aliases mutated together share digests.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
