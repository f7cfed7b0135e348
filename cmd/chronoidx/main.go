// Command chronoidx builds and verifies the nine index variants (spec §3)
// from an annotation store into a set of KVStore-backed index directories.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fredrikaaa/chronoidx/internal/xerr"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chronoidx:", err)
		var xe *xerr.Error
		if errors.As(err, &xe) {
			os.Exit(xe.ExitCode())
		}
		os.Exit(1)
	}
}
