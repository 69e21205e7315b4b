// cmd/garner/main.go
//
// garner CLI - Interactive shell over the heap files in a data directory.
//
// Usage:
//
//	garner [flags] [data-dir]
//
// With :memory: as the data directory, files live in process memory.
// Use .help for available commands.
package main

import (
	"flag"
	"fmt"
	"os"

	"garner/pkg/buffer"
	"garner/pkg/cli"
	"garner/pkg/config"
	"garner/pkg/dbio"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if dir := flag.Arg(0); dir != "" {
		if dir == ":memory:" {
			cfg.InMemory = true
		} else {
			cfg.DataDir = dir
		}
	}

	fm := dbio.NewManager(cfg.DataDir, dbio.Options{
		InMemory: cfg.InMemory,
		DirectIO: cfg.DirectIO,
	})
	bm := buffer.NewManager(buffer.Options{
		PoolSize: cfg.PoolSize,
		Policy:   buffer.Policy(cfg.Policy),
	})

	repl, err := cli.NewREPL(fm, bm, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting shell: %v\n", err)
		os.Exit(1)
	}
	defer repl.Close()

	repl.Run()
}
