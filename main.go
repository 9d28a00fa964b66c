package main

import "github.com/kamusis/asana-cli/cmd"

func main() {
	cmd.Execute()
}
