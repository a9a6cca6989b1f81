// Command indexer is the Operator Surface for the distributed Ordinals
// resource indexer (spec.md §4.7): start runs the ingestion loop, stats and
// errors inspect shared state.
package main

import (
	"fmt"
	"os"

	"github.com/ordinals-plus/indexer/internal/cli"
)

func main() {
	if err := cli.NewApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "indexer:", err)
		os.Exit(1)
	}
}
