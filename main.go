package main

import "github.com/fredbot/fred/cmd"

func main() {
	cmd.Execute()
}
