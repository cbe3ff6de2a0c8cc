package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"wavelab/cmd"
	applog "wavelab/internal/log"
	"wavelab/pkg/build"
)

// main is the entry point for the wavelab command line.
// The program flow is divided into three phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments and build configuration
//   - Configure logging
//
// 2. Run Phase:
//   - Execute the selected command; serve blocks until a termination
//     signal arrives
//
// 3. Shutdown Phase:
//   - Cancel the command context on SIGINT/SIGTERM
//   - Report command errors through the exit code
func main() {
	// ==================== STARTUP PHASE ====================

	// Development builds run without ldflags; only --version output changes.
	if err := build.Initialize(); err != nil {
		applog.Debugf("build: %v", err)
	}

	opts, err := cmd.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if opts == nil {
		// Help or version was printed.
		return
	}

	if !applog.Configure(opts.Config.LogLevel, opts.Config.Debug) {
		applog.Warnf("Unknown log level '%s', using INFO", opts.Config.LogLevel)
	}

	// ==================== RUN PHASE ====================

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-done:
			applog.Infof("Received %s, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// ==================== SHUTDOWN PHASE ====================

	if err := cmd.Execute(ctx, opts, os.Stdout); err != nil {
		applog.Fatalf("%s: %v", opts.Config.Command, err)
	}
}
