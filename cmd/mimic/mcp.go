package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/bitgrove/mimic/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes clone detection
as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "mimic": {
        "command": "mimic",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - scan_clones     Detect duplicated code under one or more paths
  - compare_files   Compare two files for cloned regions`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "manifest",
				Usage: "Print the MCP server manifest (server.json) and exit",
			},
		},
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	if c.Bool("manifest") {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	srv := mcpserver.NewServer(version)
	return srv.Run(c.Context)
}
