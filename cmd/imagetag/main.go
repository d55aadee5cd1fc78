// imagetag labels the photos and videos of a directory tree from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCommand().ExecuteContext(ctx)
	klog.Flush()
	if err != nil {
		stop()
		klog.Exitf("%v", err)
	}
}
