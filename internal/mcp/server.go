package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/weave-logic-ai/recall/internal/embedder"
	"github.com/weave-logic-ai/recall/internal/processor"
	"github.com/weave-logic-ai/recall/internal/searcher"
	"github.com/weave-logic-ai/recall/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "recall"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDataDir is the default location for the database
	DefaultDataDir = "~/.recall"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	storage   storage.Storage
	processor *processor.Processor
	searcher  *searcher.Searcher
}

// NewServer creates an MCP server backed by a database under dataDir. An
// empty dataDir defaults to ~/.recall. The embedding provider is picked
// from the environment.
func NewServer(dataDir string) (*Server, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".recall")
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(filepath.Join(dataDir, "recall.db"))
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	// One generator serves both the processor and the searcher so query
	// embeddings hit the same cache that ingestion fills.
	gen, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	proc, err := processor.New(store, gen, processor.Config{})
	if err != nil {
		return nil, fmt.Errorf("initialize processor: %w", err)
	}

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		storage:   store,
		processor: proc,
		searcher:  searcher.New(store, gen),
	}
	s.registerTools()
	return s, nil
}

// Serve runs the MCP server on stdio and blocks until shutdown. Stdout
// carries the protocol; anything else must go to stderr.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(processDocumentTool(), s.handleProcessDocument)
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(findSimilarChunksTool(), s.handleFindSimilarChunks)
	s.mcp.AddTool(embedPendingTool(), s.handleEmbedPending)
	s.mcp.AddTool(getStatsTool(), s.handleGetStats)
}
