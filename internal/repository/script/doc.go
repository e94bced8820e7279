// Package script implements read access to the installer script on disk.
//
// The FileRepository performs one filesystem read per call and never caches,
// so every request observes the file as it is at that moment.
package script
