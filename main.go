package main

import (
	"github.com/BioHazard786/warproom/cmd"
	"github.com/BioHazard786/warproom/internal/logging"
	"github.com/BioHazard786/warproom/internal/ui"
)

func main() {
	// Initialize logging
	if err := logging.Init(); err != nil {
		ui.PrintWarning("Logging to stderr: " + err.Error())
	}
	cmd.Execute()
}
