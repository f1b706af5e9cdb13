package main

import "github.com/sboruta/tracker/internal/cli"

func main() {
	cli.Execute()
}
