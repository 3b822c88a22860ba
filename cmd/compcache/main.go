// Command compcache inspects, verifies and stabilizes composition caches.
//
// Usage:
//
//	compcache [--config compcache.yaml] [-v] [--metrics-file m.prom] <command> [cache]
//
// Commands:
//
//	inspect    print the parts stored in a cache
//	verify     resolve every token against the configured packages
//	stabilize  generate a forwarding package and a cache pointing into it
//	config     print the effective configuration
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Build information injected via ldflags at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
