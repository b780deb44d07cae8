package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/weave-logic-ai/recall/internal/processor"
	"github.com/weave-logic-ai/recall/internal/storage"
	"github.com/weave-logic-ai/recall/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeAlreadyProcessing = -32001 // Source path is already being processed
	ErrorCodeChunkNotFound     = -32002 // Chunk or its embedding does not exist
	ErrorCodeProviderFailed    = -32003 // Embedding provider unavailable
	ErrorCodeEmptyQuery        = -32004 // Query parameter is empty
)

// handleProcessDocument handles the process_document tool invocation
func (s *Server) handleProcessDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	content, ok := args["content"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param": "content",
		})
	}

	sourcePath, ok := args["source_path"].(string)
	if !ok || sourcePath == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "source_path parameter is required", map[string]interface{}{
			"param":  "source_path",
			"reason": "missing or empty",
		})
	}

	contentType := types.ContentType(getStringDefault(args, "content_type", ""))
	if contentType != "" && !types.ValidContentType(contentType) {
		return nil, newMCPError(ErrorCodeInvalidParams, "unknown content_type", map[string]interface{}{
			"param": "content_type",
			"value": string(contentType),
		})
	}

	result, err := s.processor.ProcessDocument(ctx, content, sourcePath, contentType)
	if err != nil {
		return nil, mapError("processing failed", err)
	}

	chunks := make([]map[string]interface{}, len(result.Chunks))
	for i, c := range result.Chunks {
		chunks[i] = map[string]interface{}{
			"id":             c.ID,
			"sequence_index": c.SequenceIndex,
			"token_count":    c.TokenCount,
			"content_type":   string(c.ContentType),
			"confidence":     c.Metadata.Confidence,
		}
	}

	response := map[string]interface{}{
		"document_id":   result.DocumentID,
		"strategy_used": string(result.StrategyUsed),
		"chunk_count":   result.Stats.ChunkCount,
		"token_count":   result.Stats.TokenCount,
		"duration_ms":   result.Stats.Duration.Milliseconds(),
		"chunks":        chunks,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	sq := types.SearchQuery{
		Query:               query,
		Limit:               limit,
		UseHybrid:           getBoolDefault(args, "use_hybrid", true),
		FTSWeight:           getFloatDefault(args, "fts_weight", 0),
		VectorWeight:        getFloatDefault(args, "vector_weight", 0),
		SimilarityThreshold: getFloatDefault(args, "similarity_threshold", 0),
	}

	results, err := s.searcher.Search(ctx, sq)
	if err != nil {
		return nil, mapError("search failed", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"total_results": len(results),
		"results":       formatResults(results),
	})), nil
}

// handleFindSimilarChunks handles the find_similar_chunks tool invocation
func (s *Server) handleFindSimilarChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	chunkID, ok := args["chunk_id"].(string)
	if !ok || chunkID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "chunk_id parameter is required", map[string]interface{}{
			"param":  "chunk_id",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	threshold := getFloatDefault(args, "threshold", 0)

	results, err := s.searcher.FindSimilarChunks(ctx, chunkID, limit, threshold)
	if err != nil {
		return nil, mapError("similarity search failed", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"chunk_id":      chunkID,
		"total_results": len(results),
		"results":       formatResults(results),
	})), nil
}

// handleEmbedPending handles the embed_pending tool invocation
func (s *Server) handleEmbedPending(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.processor.EmbedPending(ctx)
	if err != nil {
		return nil, mapError("embedding sweep failed", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"requested": report.Requested,
		"embedded":  report.Embedded,
		"failed":    report.Failed,
		"summary":   report.String(),
	})), nil
}

// handleGetStats handles the get_stats tool invocation
func (s *Server) handleGetStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.processor.Stats(ctx)
	if err != nil {
		return nil, mapError("stats query failed", err)
	}

	response := map[string]interface{}{
		"total_documents":  stats.TotalDocuments,
		"total_chunks":     stats.TotalChunks,
		"total_embeddings": stats.TotalEmbeddings,
		"cache_hits":       stats.CacheHits,
		"cache_misses":     stats.CacheMisses,
		"models":           stats.Models,
		"schema_version":   stats.SchemaVersion,
		"vector_backend":   stats.VectorBackend,
		"database_size_mb": fmt.Sprintf("%.2f", stats.DatabaseSizeMB),
	}
	if !stats.LastProcessed.IsZero() {
		response["last_processed"] = stats.LastProcessed.Format(time.RFC3339)
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// formatResults renders search results for the wire
func formatResults(results []types.SearchResult) []map[string]interface{} {
	out := make([]map[string]interface{}, len(results))
	for i, r := range results {
		entry := map[string]interface{}{
			"chunk_id":       r.ChunkID,
			"combined_score": r.CombinedScore,
			"keyword_score":  r.KeywordScore,
			"vector_score":   r.VectorScore,
			"snippet":        r.Snippet,
		}
		if !r.CreatedAt.IsZero() {
			entry["created_at"] = r.CreatedAt.Format(time.RFC3339)
		}
		out[i] = entry
	}
	return out
}

// mapError translates pipeline errors into MCP protocol errors
func mapError(message string, err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, processor.ErrInFlight):
		return newMCPError(ErrorCodeAlreadyProcessing, message, data)
	case errors.Is(err, storage.ErrNotFound):
		return newMCPError(ErrorCodeChunkNotFound, message, data)
	case errors.Is(err, types.ErrProvider):
		return newMCPError(ErrorCodeProviderFailed, message, data)
	case errors.Is(err, types.ErrInput), errors.Is(err, types.ErrConfig):
		return newMCPError(ErrorCodeInvalidParams, message, data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
