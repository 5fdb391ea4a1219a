// The main package for the ophim-crawler executable.
package main

import "github.com/namhuunam/ophim-crawler/cmd"

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
