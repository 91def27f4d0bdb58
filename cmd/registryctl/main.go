// Command registryctl inspects and edits the service registry shared by
// the gateway and its backends.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
