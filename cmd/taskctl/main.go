package main

import "github.com/akarpov/taskdeck/internal/client/cli"

func main() {
	cli.Execute()
}
