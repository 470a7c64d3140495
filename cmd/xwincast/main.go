package main

import "github.com/xwincast/xwincast/cmd/xwincast/commands"

func main() {
	commands.Execute()
}
