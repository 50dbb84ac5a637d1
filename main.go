package main

import "overlay-sync/cmd"

func main() {
	cmd.Execute()
}
