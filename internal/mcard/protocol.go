package mcard

import "encoding/json"

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// InitParams mirrors the engine configuration surface. Zero values take
// the engine defaults.
type InitParams struct {
	Root string `json:"root"`

	Mode      string `json:"mode,omitempty"`
	Sort      string `json:"sort,omitempty"`
	Direction string `json:"direction,omitempty"`

	Backend         string `json:"backend,omitempty"`
	MetadataBackend string `json:"metadata_backend,omitempty"`
	IndexBackend    string `json:"index_backend,omitempty"`
	IndexPath       string `json:"index_path,omitempty"`

	Target         int   `json:"target,omitempty"`
	MaxDepth       *int  `json:"max_depth,omitempty"`
	EstimatedTotal int   `json:"estimated_total,omitempty"`
	PriorityRecent bool  `json:"priority_recent,omitempty"`
	RecentWindow   int   `json:"recent_window,omitempty"`
	HistoryDepth   int   `json:"history_depth,omitempty"`

	PriorityPaths      []string `json:"priority_paths,omitempty"`
	PriorityMultiplier float64  `json:"priority_multiplier,omitempty"`
}

type InitResult struct {
	ConsumerID string `json:"consumer_id"`
	Resumed    bool   `json:"resumed"`
}

type ConsumerParams struct {
	ConsumerID string `json:"consumer_id"`
}

type MetadataParams struct {
	ConsumerID string `json:"consumer_id"`
	ItemID     string `json:"item_id"`
}

type StatusResult struct {
	Root           string `json:"root"`
	Mode           string `json:"mode"`
	QueueLen       int    `json:"queue_len"`
	ShownLen       int    `json:"shown_len"`
	Scanning       bool   `json:"scanning"`
	Discovered     int    `json:"discovered"`
	EstimatedTotal int    `json:"estimated_total"`
}
