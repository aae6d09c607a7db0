// Command objcat copies a byte range of a remote object to standard output.
//
//	objcat s3://bucket/key
//	objcat --offset 1M --length 64K https://example.com/data.bin
//	objcat --proxy proxy.internal:3128 --transport pooled s3://bucket/key
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "objcat:", err)
		stop()
		os.Exit(1)
	}
}
