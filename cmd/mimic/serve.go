package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/bitgrove/mimic/internal/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve clone detection over a Unix socket",
		Description: `Starts a long-lived detection server bound to a Unix socket. Clients
send one JSON-RPC request per line and receive one JSON response per
line. Tokenized files stay cached between requests, so repeated
analysis of a slowly changing tree is much faster than re-running scan.

Methods:
  analyze      {"paths": [...]} plus optional detector settings
  compare      {"file_a": "...", "file_b": "..."} plus optional settings
  files        {"paths": [...]}, the source files a scan would cover
  hotspots     analyze params plus "limit", top duplicated files only
  file_clones  analyze params plus "file", clones touching that file
  ping         Liveness check
  shutdown     Stop the server after the response is written`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "socket",
				Aliases: []string{"s"},
				Value:   filepath.Join(os.TempDir(), "mimic.sock"),
				Usage:   "Unix socket path",
			},
		},
		Action: runServeCmd,
	}
}

func runServeCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	socketPath := c.String("socket")
	srv := server.New(cfg)
	color.Green("Listening on %s", socketPath)
	return srv.Serve(ctx, socketPath)
}
