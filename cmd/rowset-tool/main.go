// Command rowset-tool inspects rowset directories. It can dump their
// physical layout, verify that the data is well formed, and generate
// sample rowsets for ad-hoc testing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rowset-tool",
	Short: "Inspect, verify, and generate columnar rowset directories",
	Long: `rowset-tool works with rowset directories: immutable, column-oriented
on-disk row data, one encoded file per column plus an optional existence
filter.

Examples:
  rowset-tool dump ./data/rs-0001
  rowset-tool verify ./data/rs-0001
  rowset-tool gen --rows 10000 ./data/rs-0001`,
}

func main() {
	rootCmd.AddCommand(dumpCmd, verifyCmd, genCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
