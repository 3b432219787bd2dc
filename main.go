package main

import "github.com/loomlabs/loom/cmd"

func main() {
	cmd.Execute()
}
