package main

import "github.com/cpugovernor/debrel/cmd/debrel/cmd"

func main() {
	cmd.Execute()
}
