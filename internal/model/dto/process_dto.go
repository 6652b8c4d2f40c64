package dto

// FileInfo 结果文件契约，url 必须可匿名 GET
type FileInfo struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileSize     int64  `json:"file_size"`
	FileType     string `json:"file_type"`
	URL          string `json:"url"`
	PreviewURL   string `json:"preview_url"`
	Description  string `json:"description"`
	UploadTime   string `json:"upload_time"`
	UploadSource string `json:"upload_source,omitempty"`
}

// BillingInfo 返回给调用方的计费明细
type BillingInfo struct {
	CallID    string            `json:"call_id"`
	TotalCost int64             `json:"total_cost"`
	Breakdown map[string]string `json:"breakdown"`
	Mode      string            `json:"mode"`
}

// ProcessingInfo 参数回显 + 计费信息
type ProcessingInfo struct {
	Operation   string            `json:"operation"`
	Parameters  map[string]string `json:"parameters"`
	BillingInfo *BillingInfo      `json:"billing_info"`
}

// ProcessResponse 处理接口成功响应的 data 字段
type ProcessResponse struct {
	File           *FileInfo       `json:"file"`
	ProcessingInfo *ProcessingInfo `json:"processing_info"`
}
