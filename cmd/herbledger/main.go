package main

import "github.com/terraconstructs/herbledger/cmd/herbledger/cmd"

func main() {
	cmd.Execute()
}
