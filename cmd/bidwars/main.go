package main

import "github.com/mcoot/bidwars/internal/cli"

func main() {
	cli.Execute()
}
