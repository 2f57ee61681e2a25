// Command staffsync reconciles external staffing data exports against
// the persistent record store.
package main

import (
	"os"

	"staffsync/cmd/staffsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
