// Package server exposes a searcher over HTTP and as an MCP tool.
//
// Both transports share an Executor, which turns a Request into ranked
// hits or sorted groups. The HTTP API is a chi router:
//
//	GET /search?q=...&field=...&limit=...&group=...&sort=...&highlight=true
//	GET /healthz
//	GET /metrics
//
// The MCP server registers a single "search" tool and is normally served
// over stdio.
package server
