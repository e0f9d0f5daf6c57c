package main

import "github.com/KaramelBytes/eqviz-cli/cmd"

func main() {
	cmd.Execute()
}
