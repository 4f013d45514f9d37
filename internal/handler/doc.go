// Package handler implements the HTTP API for topomap.
//
// # Routes
//
// The /api tree exposes the topology (nodes, links, ports, hierarchy), the
// link-drawing selection, import/export and the saved viewport. The
// /api/editor tree drives the single shared Editor: placement, port clicks,
// pointer movement with link previews, pan and zoom, all in screen space.
//
// Live updates are streamed on /events (Server-Sent Events) and /ws
// (WebSocket). Prometheus metrics are served on /metrics.
//
// # Response Format
//
// Success responses return JSON data with 200 or 201. Errors return
// {error, details} with 400 for invalid input, 404 for unknown ids, 409 for
// commands the current state refuses (occupied ports, cycles, no selection)
// and 500 otherwise.
package handler
