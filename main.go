package main

import "github.com/xvierd/flow-reader/cmd"

func main() {
	cmd.Execute()
}
