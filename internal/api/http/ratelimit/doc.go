// Package ratelimit implements a per-client token bucket limiter and the
// HTTP middleware that applies it in front of the installer endpoint.
package ratelimit
