package main

import (
	"context"
	"fmt"
	"fundverse/cmd/cli"
	"os"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
