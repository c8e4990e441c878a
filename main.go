package main

import (
	"os"

	"tripmate/cmd"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	os.Exit(cmd.Execute(version))
}
