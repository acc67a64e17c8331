package main

import "github.com/deusflow/newsrisk/internal/cli"

func main() {
	cli.Execute()
}
