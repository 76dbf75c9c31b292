// Command ialauncher browses a local catalog of DOS titles, downloads their
// assets on demand and starts them in DOSBox.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
