// The main package for the merchantfeed executable.
package main

import (
	"github.com/feedforge/merchantfeed/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
