package model

// MarkerResult 标记生成结果
type MarkerResult struct {
	ID         string `json:"id"`
	MD5        string `json:"md5"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	PatternURL string `json:"pattern_url"`
	TargetURL  string `json:"target_url"`
	Timestamp  int64  `json:"timestamp"`
}

// UploadResponse 上传响应
type UploadResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    *MarkerResult `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
