package main

import (
	"context"
	"fmt"
	"os"

	"platereader/internal/cli"
	"platereader/internal/infrastructure"
)

func main() {
	err := cli.Execute(context.Background())
	_ = infrastructure.CloseLogFile()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
