package main

import "github.com/apfsdev/btreeengine/cmd"

func main() {
	cmd.Execute()
}
