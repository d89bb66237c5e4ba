package main

import "github.com/moviebarn/rothbot/cmd"

func main() {
	cmd.Execute()
}
