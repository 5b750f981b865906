package models

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type AdminLoginRequest struct {
	Password string `json:"password"`
}

type AdminLoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type MemoryResponse struct {
	UserID int64      `json:"user_id"`
	Tier   MemoryTier `json:"tier"`
	Lines  []string   `json:"lines"`
}

type StatsResponse struct {
	Sessions       int   `json:"sessions"`
	BlockedPhrases int   `json:"blocked_phrases"`
	AlertFeeds     int   `json:"alert_feeds"`
	UptimeSeconds  int64 `json:"uptime_seconds"`
}
