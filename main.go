package main

import "entangled/cmd"

func main() {
	cmd.Execute()
}
