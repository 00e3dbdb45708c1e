// Package store provides SQLite-backed durable storage for organisms.
//
// The store keeps:
//   - Organisms: the latest document per organism ID, with its generation
//     and content digest
//   - Batches: one row per accepted mutation batch, keyed by UUIDv7 and
//     unique per (organism_id, generation)
//   - Fitness: an append-only series of fitness samples
//
// # Critical Patterns
//
// Optimistic generations
//   - Every write names the generation it expects to replace
//   - A mismatch returns ErrGenerationConflict and writes nothing
//   - This serializes read-modify-write cycles between concurrent hosts
//
// Atomic cycles
//   - CommitCycle writes the organism and its newest batch in one
//     transaction, so the batch table never runs ahead of the document
//
// Deterministic query results
//   - Batches are ordered by generation, fitness samples by generation then
//     insertion order
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Documents are stored as canonical JSON produced by internal/ir, and
// digests use its domain-separated SHA-256 helpers.
package store
