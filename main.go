package main

import "github.com/killallgit/webbuilder/cmd"

func main() {
	cmd.Execute()
}
