package main

import "biblegen/internal/cli"

func main() {
	cli.Execute()
}
