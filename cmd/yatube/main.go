package main

import "github.com/UkralStul/yatube/cmd/yatube/commands"

func main() {
	commands.Execute()
}
