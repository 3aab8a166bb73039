// Command osname-server is a minimal MCP server exposing a single tool that
// reports the host operating system. It speaks the stdio transport and is
// meant to be launched as a subprocess by an MCP host.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type emptyArgs struct{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	server := mcp.NewServer(&mcp.Implementation{Name: "osname-server", Version: "0.1.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_os_name",
		Description: "Report the name of the operating system this server runs on.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ emptyArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: runtime.GOOS}},
		}, nil, nil
	})

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("osname-server: %v", err)
	}
}
