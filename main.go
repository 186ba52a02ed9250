package main

import "tokwall/cmd"

func main() {
	cmd.Execute()
}
