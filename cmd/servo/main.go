// Command servo is the ground-control server's thin CLI front-end (spec
// §1, §6 "CLI surface"). `serve` starts the core; every other subcommand
// is an out-of-core collaborator that only ever talks to the core over
// HTTP, exactly as spec §1 describes.
package main

import (
	"fmt"
	"os"

	"github.com/groundstation/servo/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
