package main

import "github.com/dabinuss/clipcore/internal/cli"

func main() {
	cli.Main()
}
