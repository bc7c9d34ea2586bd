// Package model provides the core data types shared by every runview package.
//
// This package contains type definitions and decoding only. All other internal
// packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Object key order is preserved end to end (Tree is an ordered slice, not a map)
//   - Numbers are float64, as decoded from JSON
//   - A record without data is absent, never an error
//   - Paths are slash-joined segments rooted at a group ("params", "metrics")
package model
