// Command nexuscap inspects the capture daemon's on-disk state: the session
// manifest, the heartbeat file, and the frames directory. It talks to files,
// not to the daemon, so it works whether or not the daemon is running.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
