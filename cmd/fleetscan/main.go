// main is the entry point for the fleetscan CLI.
package main

import (
	"os"

	"github.com/fleetscan/fleetscan/cmd"
	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/internal/sink"
)

func main() {
	err := cmd.Execute()

	// Close the store before deciding the exit code so a failed command
	// still releases the database cleanly.
	sink.CloseResults()
	if perr := cmd.StopProfiling(); perr != nil {
		contract.LogWarn("Failed to stop profiling", perr)
	}

	if err != nil {
		os.Exit(1)
	}
}
