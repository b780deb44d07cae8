package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// processDocumentTool returns the tool definition for process_document
func processDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "process_document",
		Description: "Chunk a document and store it for retrieval. Reprocessing the same source path replaces its previous chunks.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Document text to chunk. Empty content clears the document's chunks.",
				},
				"source_path": map[string]interface{}{
					"type":        "string",
					"description": "Stable identifier for the document, e.g. a file path or URI",
				},
				"content_type": map[string]interface{}{
					"type":        "string",
					"description": "Declared content type. Omit to infer the chunking strategy from structure.",
					"enum":        []string{"episodic", "semantic", "preference", "procedural", "working", "generic"},
				},
			},
			Required: []string{"content", "source_path"},
		},
	}
}

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search stored chunks with keyword matching, optionally fused with vector similarity",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query text",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"use_hybrid": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, fuse vector similarity into the ranking",
					"default":     true,
				},
				"fts_weight": map[string]interface{}{
					"type":        "number",
					"description": "Weight of the keyword score in the combined score",
					"default":     0.3,
					"minimum":     0.0,
				},
				"vector_weight": map[string]interface{}{
					"type":        "number",
					"description": "Weight of the vector score in the combined score",
					"default":     0.7,
					"minimum":     0.0,
				},
				"similarity_threshold": map[string]interface{}{
					"type":        "number",
					"description": "Drop results scoring below this. Applies to the vector score in hybrid mode, the combined score otherwise.",
					"default":     0.0,
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// findSimilarChunksTool returns the tool definition for find_similar_chunks
func findSimilarChunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_similar_chunks",
		Description: "Find chunks whose embeddings are nearest to a given chunk's embedding",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"chunk_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the chunk to find neighbors of. The chunk must already be embedded.",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum vector similarity score in [0,1]",
					"default":     0.0,
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"chunk_id"},
		},
	}
}

// embedPendingTool returns the tool definition for embed_pending
func embedPendingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "embed_pending",
		Description: "Generate and store embeddings for every chunk that has none under the active model",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatsTool returns the tool definition for get_stats
func getStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_stats",
		Description: "Report corpus counts, embedding cache counters, and database info",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
