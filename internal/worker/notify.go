package worker

// ExportNotifyMessage is forwarded to the browser through Redis pub/sub and the /ws endpoint.
type ExportNotifyMessage struct {
	Status        string `json:"status"`
	SessionID     string `json:"session_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}
