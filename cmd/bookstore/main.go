package main

import "bookstore/cmd/bookstore/commands"

func main() {
	commands.Execute()
}
