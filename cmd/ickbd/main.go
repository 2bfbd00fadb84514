package main

import "github.com/LeJamon/goickb/internal/cli"

func main() {
	cli.Execute()
}
