// Package grpcserver serves the hub's health over gRPC so orchestrators can
// tell whether the upstream feed is live.
package grpcserver
