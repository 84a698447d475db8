// The main package for the knitcrawl executable.
package main

import "github.com/haeun-dev/knitcrawl/cmd"

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
