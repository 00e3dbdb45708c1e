// Package harness runs reproducible mutation scenarios against the engine.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: reference_glow
//	description: "What this scenario validates"
//	now: 1700000000000          # fixed cycle time, epoch ms
//	draws: [0.5, 0.5]           # scripted random draws (or seed: N)
//	cycles: 1
//	thresholds:                 # optional overrides
//	  drift_threshold: 0.7
//	organism:
//	  manifest: {name: seed}
//	patterns:
//	  - {event: replicate, frequency: 10, success_rate: 0.9, resonance_impact: 0.9, timestamp: 1700000000000}
//	feedback: {interactions: 5, resonance_received: 0.9, clones_spawned: 1, energy_flow: 0.5}
//	assertions:
//	  - {type: classification, set: dominant, events: [replicate]}
//	  - {type: mutations, targets: [svg.glow]}
//	  - {type: applied, applied: true}
//	  - {type: generation, count: 1}
//	  - {type: leaf, path: svg.glow, value: true}
//	  - {type: fitness, value: 0.66}
//
// # Assertion Types
//
//   - classification: a classification set of a cycle, in order
//   - mutations: the ordered targets of a cycle's proposed mutations
//   - applied: whether the drift gate accepted a cycle's batch
//   - generation, history_length: counters of the final organism
//   - leaf: a graph value at a dotted path (omit value to assert absence)
//   - fitness: the evaluated fitness within a tolerance
//   - error: the engine error code that stopped the run
//
// Per-cycle assertions take an optional 1-based cycle; the default is the
// last completed cycle.
//
// # Deterministic Testing
//
// The harness uses:
//   - Scripted or seeded random draws
//   - Deterministic clock (testutil.DeterministicClock)
//   - In-memory SQLite database (isolated per run), with every accepted
//     batch committed through store.CommitCycle
//
// This ensures identical snapshots across runs for golden file comparison.
package harness
