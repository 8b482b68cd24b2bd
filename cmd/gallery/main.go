package main

import (
	"fmt"
	"os"

	"github.com/EgorLis/event-gallery/internal/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// @title       Event Gallery API
// @version     1.0
// @description Time-bounded photo galleries: bulk upload, browse, download.
// @BasePath    /
func main() {
	commands.SetVersion(version, commit, date)
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
