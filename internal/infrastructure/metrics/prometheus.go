package metrics

import (
	"expvar"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

type meta struct {
	typ, help string
	isMap     bool
	label     string
}

// Metadata for the metrics this package publishes.
var metas = map[string]meta{
	"chatflow_nodes_added_total":     {typ: "counter", help: "Nodes added to the live graph"},
	"chatflow_nodes_removed_total":   {typ: "counter", help: "Nodes removed from the live graph"},
	"chatflow_nodes_updated_total":   {typ: "counter", help: "Node payload updates applied"},
	"chatflow_edges_added_total":     {typ: "counter", help: "Edges added to the live graph"},
	"chatflow_edges_removed_total":   {typ: "counter", help: "Edges removed, including cascades"},
	"chatflow_versions_saved_total":  {typ: "counter", help: "Version snapshots saved"},
	"chatflow_versions_loaded_total": {typ: "counter", help: "Version snapshots loaded into the live graph"},
	"chatflow_store_errors_total":    {typ: "counter", help: "Failed store operations", isMap: true, label: "kind"},
	"chatflow_archive_writes_total":  {typ: "counter", help: "Snapshots written to a persistence backend", isMap: true, label: "backend"},
	"chatflow_history_versions":      {typ: "gauge", help: "Snapshots retained in history", isMap: true, label: "flow"},
	"chatflow_live_objects":          {typ: "gauge", help: "Live nodes and edges", isMap: true, label: "object"},
}

// Handler renders expvar-published metrics in Prometheus text exposition format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		WritePrometheus(w)
	})
}

// WritePrometheus writes every known metric, plus any other integer expvar,
// in Prometheus text format.
func WritePrometheus(w io.Writer) {
	// Collect variable names deterministically
	varNames := make([]string, 0, 64)
	expvar.Do(func(kv expvar.KeyValue) {
		varNames = append(varNames, kv.Key)
	})
	sort.Strings(varNames)

	for _, name := range varNames {
		v := expvar.Get(name)
		m, known := metas[name]
		if !known {
			// Minimal rendering: publish as an untyped gauge if numeric
			if iv, ok := v.(*expvar.Int); ok {
				_, _ = fmt.Fprintf(w, "# TYPE %s gauge\n", name)
				_, _ = fmt.Fprintf(w, "%s %s\n", name, iv.String())
			}
			continue
		}
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, sanitizeHelp(m.help))
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, m.typ)
		if !m.isMap {
			_, _ = fmt.Fprintf(w, "%s %s\n", name, v.String())
			continue
		}
		mp, ok := v.(*expvar.Map)
		if !ok {
			continue
		}
		sub := make([]expvar.KeyValue, 0, 8)
		mp.Do(func(kv expvar.KeyValue) { sub = append(sub, kv) })
		sort.Slice(sub, func(i, j int) bool { return sub[i].Key < sub[j].Key })
		for _, kv := range sub {
			_, _ = fmt.Fprintf(w, "%s{%s=\"%s\"} %s\n", name, m.label, escapeLabel(kv.Key), kv.Value.String())
		}
	}
}

func sanitizeHelp(s string) string {
	// Replace newlines with spaces to satisfy Prometheus text format
	return strings.ReplaceAll(s, "\n", " ")
}

func escapeLabel(s string) string {
	// Escape backslash, double-quote, and newline per Prometheus format
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
