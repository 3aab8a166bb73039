// Command diskusage-server is a minimal MCP server exposing a disk usage
// tool. It speaks the stdio transport and is meant to be launched as a
// subprocess by an MCP host.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sys/unix"
)

type diskUsageArgs struct {
	Path string `json:"path,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	server := mcp.NewServer(&mcp.Implementation{Name: "diskusage-server", Version: "0.1.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_disk_usage",
		Description: "Report total, used, and free space for a filesystem path.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "Filesystem path to inspect. Defaults to /.",
				},
			},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args diskUsageArgs) (*mcp.CallToolResult, any, error) {
		path := args.Path
		if path == "" {
			path = "/"
		}

		var st unix.Statfs_t
		if err := unix.Statfs(path, &st); err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("statfs %s: %v", path, err)}},
			}, nil, nil
		}

		total := st.Blocks * uint64(st.Bsize)
		free := st.Bavail * uint64(st.Bsize)
		used := total - free

		text := fmt.Sprintf("Disk usage for %s:\n  total: %s\n  used:  %s (%.1f%%)\n  free:  %s",
			path, humanBytes(total), humanBytes(used), percent(used, total), humanBytes(free))

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	})

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("diskusage-server: %v", err)
	}
}

func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
