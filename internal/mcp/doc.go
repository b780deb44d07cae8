// Package mcp implements the Model Context Protocol (MCP) server for the
// chunking and retrieval engine.
//
// The server exposes five tools to MCP clients:
//   - process_document: chunk a document and store it for retrieval
//   - search: hybrid keyword plus vector search over stored chunks
//   - find_similar_chunks: nearest neighbors of a stored chunk's embedding
//   - embed_pending: generate embeddings for chunks that have none
//   - get_stats: corpus counts, cache counters, and database info
//
// # Protocol
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client -> Server: {"method": "tools/call", "params": {...}}
//	Server -> Client: {"result": {...}}
//
// Stdout carries protocol frames exclusively. Diagnostics belong on
// stderr; writing anything else to stdout corrupts the stream.
//
// # Tool: process_document
//
//	Request:
//	{
//	  "name": "process_document",
//	  "arguments": {
//	    "content": "Step 1: Install the server.\nStep 2: Run migrations.",
//	    "source_path": "/notes/setup.md",
//	    "content_type": "procedural"
//	  }
//	}
//
//	Response:
//	{
//	  "document_id": "5f0b...",
//	  "strategy_used": "step_based",
//	  "chunk_count": 2,
//	  "token_count": 11,
//	  "duration_ms": 1,
//	  "chunks": [{"id": "...", "sequence_index": 0, ...}]
//	}
//
// Omitting content_type lets the processor infer the strategy from the
// document's structure. Reprocessing a source_path supersedes its
// previous chunk set.
//
// # Tool: search
//
//	Request:
//	{
//	  "name": "search",
//	  "arguments": {
//	    "query": "authentication",
//	    "use_hybrid": true,
//	    "fts_weight": 0.3,
//	    "vector_weight": 0.7,
//	    "limit": 10
//	  }
//	}
//
// Results carry keyword, vector, and combined scores plus a snippet
// around the first query term match. Hybrid mode needs embeddings; run
// embed_pending after ingesting documents, or searches fall back to
// keyword ranking alone.
//
// # Error codes
//
// Tool failures map the pipeline's error taxonomy onto JSON-RPC codes:
// invalid input and configuration become -32602, a source path already
// being processed becomes -32001, a missing chunk or embedding -32002,
// an unavailable embedding provider -32003, and an empty query -32004.
// Everything else is -32603.
package mcp
