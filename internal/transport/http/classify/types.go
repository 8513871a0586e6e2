package classifyhttp

// ClassifyResponse is the flat success payload for POST /classify.
type ClassifyResponse struct {
	Result       string `json:"result"`
	IsHotdog     bool   `json:"is_hotdog"`
	Description  string `json:"description"`
	Source       string `json:"source"`
	ProcessedURL string `json:"processed_url,omitempty"`
	RequestID    string `json:"request_id"`
	Timestamp    string `json:"timestamp"`
}

// ErrorResponse carries a short message and the request id; internal detail
// stays in the logs.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id"`
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status          string  `json:"status"`
	APIConnection   bool    `json:"api_connection"`
	Timestamp       string  `json:"timestamp"`
	MemoryUsageKB   uint64  `json:"memory_usage_kb"`
	UploadDirSizeMB float64 `json:"upload_dir_size_mb"`
}
