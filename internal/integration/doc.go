// Package integration contains end-to-end tests that start the real
// installer server on loopback ports.
package integration
