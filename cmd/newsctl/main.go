package main

import "github.com/ncnews/ncnews-backend/cmd/newsctl/commands"

func main() {
	commands.Execute()
}
