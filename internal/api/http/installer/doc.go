// Package installer implements the HTTP endpoint that serves the installer
// script as plain text for pipeline installs such as `irm <url> | iex`.
package installer
