package main

import (
	"context"
	"os"

	"github.com/abrezinsky/consensus/internal/cli"
)

// Build with -ldflags "-X github.com/abrezinsky/consensus/internal/cli.Version=v1.2.3"
func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
