// Package server runs the installer HTTP endpoint together with its optional
// companions: the per-client rate limiter, the script watcher and the gRPC
// health server.
package server
