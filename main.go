// sersniff - a serial port sniffer that bridges a virtual endpoint to a
// physical one and captures the traffic in both directions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sersniff/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sersniff: %v\n", err)
		os.Exit(1)
	}
}
