// Package depth defines the market-data messages distributed by the hub:
// trades and per-symbol depth (full snapshots and incremental level changes),
// plus a fixed-level Book that folds incrementals into a snapshot.
package depth
