// Package store owns the lifecycle of the served dataset: the first load at
// startup, periodic or file-triggered reloads, and the atomic swap that hands
// each request one consistent snapshot.
//
// Snapshots are immutable. A failed reload leaves the previous snapshot in
// place, and Stale reports when it has outlived the configured maximum age.
package store
