package main

import "github.com/mcoot/callclock/internal/cli"

func main() {
	cli.Execute()
}
