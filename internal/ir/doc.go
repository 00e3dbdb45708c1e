// Package ir provides the value and record types shared by every morphic
// package.
//
// This package contains type definitions and their codecs only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - The organism graph is an IRValue tree, never map[string]any
//   - Numbers are float64 and must be finite; NaN and ±Inf are rejected at
//     every boundary (decode, canonical marshal, scoring)
//   - All JSON tags use snake_case
//   - Object iteration always goes through SortedKeys for determinism
package ir
