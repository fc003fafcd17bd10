package metrics

import (
	"expvar"
)

// Store mutation counters.
var (
	nodesAddedTotal     = new(expvar.Int)
	nodesRemovedTotal   = new(expvar.Int)
	edgesAddedTotal     = new(expvar.Int)
	edgesRemovedTotal   = new(expvar.Int)
	nodesUpdatedTotal   = new(expvar.Int)
	versionsSavedTotal  = new(expvar.Int)
	versionsLoadedTotal = new(expvar.Int)
)

// Maps keyed by error kind or backend.
var (
	storeErrors      = expvar.NewMap("chatflow_store_errors_total")
	archiveWrites    = expvar.NewMap("chatflow_archive_writes_total")
	historyRetained  = expvar.NewMap("chatflow_history_versions")
	liveGraphObjects = expvar.NewMap("chatflow_live_objects")
)

func init() {
	expvar.Publish("chatflow_nodes_added_total", nodesAddedTotal)
	expvar.Publish("chatflow_nodes_removed_total", nodesRemovedTotal)
	expvar.Publish("chatflow_nodes_updated_total", nodesUpdatedTotal)
	expvar.Publish("chatflow_edges_added_total", edgesAddedTotal)
	expvar.Publish("chatflow_edges_removed_total", edgesRemovedTotal)
	expvar.Publish("chatflow_versions_saved_total", versionsSavedTotal)
	expvar.Publish("chatflow_versions_loaded_total", versionsLoadedTotal)
}

// Store helpers
func IncNodesAdded() { nodesAddedTotal.Add(1) }
func AddNodesRemoved(n int) { nodesRemovedTotal.Add(int64(n)) }
func IncNodesUpdated() { nodesUpdatedTotal.Add(1) }
func IncEdgesAdded() { edgesAddedTotal.Add(1) }
func AddEdgesRemoved(n int) { edgesRemovedTotal.Add(int64(n)) }
func IncVersionsSaved() { versionsSavedTotal.Add(1) }
func IncVersionsLoaded() { versionsLoadedTotal.Add(1) }
func IncStoreError(kind string) { storeErrors.Add(kind, 1) }
func SetHistoryVersions(flow string, n int) { setMapInt(historyRetained, flow, int64(n)) }

// SetLiveObjects records the live node and edge counts of a flow.
func SetLiveObjects(flow string, nodes, edges int) {
	setMapInt(liveGraphObjects, flow+"/nodes", int64(nodes))
	setMapInt(liveGraphObjects, flow+"/edges", int64(edges))
}

// Archive helpers
func AddArchiveWrites(backend string, n int) { archiveWrites.Add(backend, int64(n)) }

// setMapInt replaces value for a key in an expvar.Map with an *expvar.Int set to v.
func setMapInt(m *expvar.Map, key string, v int64) {
	x := new(expvar.Int)
	x.Set(v)
	m.Set(key, x)
}
