// Package script contains the domain type for the served installer script.
//
// A Script is read-only from this system's point of view: it is placed on
// disk by deployment and only ever read back, once per request.
package script
