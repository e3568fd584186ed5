// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only slipbox tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/noteservice"
)

// ContractURI identifies the note format resource.
const ContractURI = "slipbox://note-format"

// Checker runs the index checks and returns the formatted report.
type Checker interface {
	Check(ctx context.Context, enable, disable []string, strict bool) (report string, clean bool, err error)
}

// Server wraps the MCP server with slipbox tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *noteservice.Service
	checker Checker
}

// New creates a new MCP server with all slipbox tools registered.
func New(svc *noteservice.Service, checker Checker, version string) *Server {
	s := &Server{svc: svc, checker: checker}

	s.mcp = server.NewMCPServer(
		"Slipbox",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("note_info",
		mcp.WithDescription("Show a note's title, file, tags, outgoing links, backlinks and citations."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Numeric note id")),
	), s.noteInfo)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes ordered by id, optionally only those with a tag."),
		mcp.WithString("tag", mcp.Description("Optional tag, with or without the leading #")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes (0 for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag with the number of notes carrying it."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("suggest_ids",
		mcp.WithDescription("Suggest unused note ids, filling gaps first. "+
			"Read the note format via the "+ContractURI+" resource before writing notes."),
		mcp.WithNumber("count", mcp.Description("How many ids to suggest (default 1)")),
	), s.suggestIDs)

	s.mcp.AddTool(mcp.NewTool("check_notes",
		mcp.WithDescription("Run the slipbox checks and return the report."),
		mcp.WithString("enable", mcp.Description("Comma-separated checks to enable, or 'all'")),
		mcp.WithString("disable", mcp.Description("Comma-separated checks to disable, or 'all'")),
		mcp.WithBoolean("strict", mcp.Description("Treat warnings as errors")),
	), s.checkNotes)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Note Format Contract",
			mcp.WithResourceDescription("How slipbox notes, links, tags and citations are written."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) noteInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info, err := s.svc.Info(ctx, id)
	if errors.Is(err, apperr.ErrNoteNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("note not found: %d", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := info.YAML()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.svc.ListNotes(ctx, req.GetString("tag", ""), req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, len(notes))
	for i, n := range notes {
		lines[i] = fmt.Sprintf("%d\t%s\t%s", n.ID, n.Title, n.Filename)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.Tags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tags, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) suggestIDs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.svc.SuggestIDs(ctx, req.GetInt("count", 1))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(noteservice.JoinIDs(ids)), nil
}

func (s *Server) checkNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.checker == nil {
		return mcp.NewToolResultError("checks are not available"), nil
	}
	report, clean, err := s.checker.Check(ctx,
		splitList(req.GetString("enable", "")),
		splitList(req.GetString("disable", "")),
		req.GetBool("strict", false),
	)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if clean && report == "" {
		report = "no problems found"
	}
	return mcp.NewToolResultText(report), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
