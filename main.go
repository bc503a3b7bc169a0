package main

import (
	// Embedded zone database so TZ_LOCATION resolves on minimal images
	_ "time/tzdata"

	"github.com/teemow/todoagent/cmd"
)

// version will be set by goreleaser during build
var version = "dev"

func main() {
	// Set the version from build-time variable
	cmd.SetVersion(version)

	// Execute the root command
	cmd.Execute()
}
