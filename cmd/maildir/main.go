// Command maildir inspects and modifies Maildir mailboxes.
package main

import (
	"os"

	"github.com/infodancer/mailstore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
