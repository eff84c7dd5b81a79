// Package memory recycles the byte buffers that move through the hub.
//
// Buffers are checked out for exactly one I/O operation at a time and come
// back through Put when that operation completes. A starved pool falls back
// to a fresh allocation; it never fails.
//
// Pools are not safe for concurrent use. They are owned by the event loop.
package memory
