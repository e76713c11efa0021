package main

import "github.com/agentic-research/photocat/cmd"

func main() {
	cmd.Execute()
}
