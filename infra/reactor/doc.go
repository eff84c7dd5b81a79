// Package reactor is the asynchronous I/O adapter behind the hub.
//
// Every operation (accept, connect, send, receive) returns immediately and
// its completion handler is later run on the Loop goroutine. Completions for
// one connection arrive in the order the operations were issued; there is no
// ordering across connections. In-flight operations cannot be cancelled;
// closing a connection fails whatever is still pending on it.
package reactor
