// Package sqlite contains SQLite persistence for pose benchmark runs.
//
// Only the cmd tooling writes here. The detector's own store is
// in-memory; nothing in internal/fiducial depends on this package, and
// all benchmark SQL belongs here rather than in the cmd layer.
package sqlite
