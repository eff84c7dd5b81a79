// Package snapshot keeps the latest full depth of every symbol the hub has
// seen, so late joiners can be bootstrapped and upstream snapshots can be
// turned into level changes.
//
// The store lives in memory unless a directory is configured. Nothing in it
// is meant to survive a restart; the upstream re-sends full state on connect.
package snapshot
