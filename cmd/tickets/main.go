// Command tickets manages remediation tickets and their trash.
package main

import "github.com/mesh-intelligence/tickets/internal/cli"

func main() {
	cli.Execute()
}
