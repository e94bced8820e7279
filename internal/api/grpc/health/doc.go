// Package health exposes the standard gRPC health protocol for the installer
// server.
//
// The reported status follows the presence of the script on disk: SERVING
// while the file exists, NOT_SERVING otherwise.
package health
