package main

import "github.com/agentic-research/quill/cmd"

func main() {
	cmd.Execute()
}
