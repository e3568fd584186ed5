package internal

import (
	"log/slog"

	"github.com/starford/slipbox/internal/mcpserver"
	"github.com/starford/slipbox/internal/noteservice"
)

// ServeMCP serves the index to an MCP client over stdin and stdout until the client disconnects.
func (a *App) ServeMCP(version string) error {
	a.logger.Info("mcp server started", slog.String("version", version))
	return mcpserver.New(noteservice.NewService(a.db), reportChecker{app: a}, version).ServeStdio()
}
