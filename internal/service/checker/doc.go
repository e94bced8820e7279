// Package checker queries the gRPC health endpoint of a running installer
// server and reports whether the script is being served.
package checker
