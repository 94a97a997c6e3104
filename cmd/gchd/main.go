package main

import "github.com/gchd-dev/gchd/cmd/gchd/commands"

func main() {
	commands.Execute()
}
