package main

import (
	"github.com/trubylang/truby/pkg/cli"
)

func main() {
	cli.Run()
}
