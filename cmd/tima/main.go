// Command tima loads, compiles and runs timed automata.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tima/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tima:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
