// Package engine implements the morphic adaptive mutation engine.
//
// A cycle scores a usage log, turns the scores and ecosystem feedback into a
// mutation batch, projects the batch onto a drift vector, and applies the
// batch to an organism graph only if the drift is large enough. Fitness is a
// separate, stateless evaluation.
//
// ARCHITECTURE:
//
// Pipeline (leaf-first):
//  1. Classify: score = frequency × success_rate × resonance_impact;
//     dominant / recessive / emerging sets (overlap allowed)
//  2. Generate: one Bernoulli draw per classified event from the injected
//     RandSource, then deterministic feedback-triggered mutations
//  3. Drift: per-(type, target) dimension accumulation, Euclidean magnitude
//  4. Apply: magnitude gate, then all-or-nothing batch application
//
// Fitness is evaluated independently and never touches an organism.
//
// CRITICAL PATTERNS:
//
// Explicit collaborators:
// Time comes from Clock, randomness from RandSource. Nothing reads the wall
// clock or a global random generator, so a fixed clock and a seeded source
// reproduce a cycle exactly.
//
// All-or-nothing batches:
// The gate runs once. Mutations are applied to a copy of the graph, and the
// copy, generation and history are committed together. A PATH_CONFLICT
// rejects the whole batch.
//
// Synchronous:
// No operation blocks, yields or performs I/O. Every call is
// O(patterns + mutations).
package engine
