// Command installer-server serves an installer script as plain text over HTTP.
package main

import "github.com/oshokin/installer-endpoint/cmd/installer-server/cmd"

func main() {
	cmd.Execute()
}
