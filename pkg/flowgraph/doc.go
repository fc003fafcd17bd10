// Package flowgraph provides a minimal public façade over the chatbot flow
// store without importing internal packages. It re-exports the graph types
// and exposes a Runtime that pairs a store with a version archive and an
// HTTP handler.
package flowgraph
