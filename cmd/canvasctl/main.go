package main

import (
	"os"

	"github.com/liliang-cn/aicanvas/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewRootCommand(), os.Args[1:], os.Stdout, os.Stderr))
}
