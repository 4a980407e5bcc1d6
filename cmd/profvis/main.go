package main

import "github.com/profvis/cmd/profvis/cmd"

func main() {
	cmd.Execute()
}
