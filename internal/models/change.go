package models

import "time"

// ChangeEvent is the wire shape of a row change on the local change bus,
// matching what the hosted collaborator pushes.
type ChangeEvent struct {
	Event           string         `json:"event"`
	Schema          string         `json:"schema"`
	Table           string         `json:"table"`
	New             map[string]any `json:"new"`
	Old             map[string]any `json:"old"`
	CommitTimestamp time.Time      `json:"commit_timestamp"`
}

// ChangeTopic is the bus channel carrying changes of one table.
func ChangeTopic(schema, table string) string {
	if schema == "" {
		schema = "public"
	}
	return "realtime:" + schema + ":" + table
}
