// Command querydsl compiles entity schemas and builds, prints and runs
// type-checked queries.
package main

import (
	"fmt"
	"os"

	"github.com/bitfox-hash/querydsl/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
