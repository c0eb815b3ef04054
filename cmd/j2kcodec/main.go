// Command j2kcodec encodes and decodes JPEG 2000 images from the
// command line, wrapping the github.com/rasterlab/j2kcore library.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rasterlab/j2kcore/cmd/j2kcodec/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := cmd.NewRoot(ctx)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
