package models

// Reply is what the assistant hands back to the transport for one request.
// Parts are sent in order; Poll, when set, is sent after them.
type Reply struct {
	Parts    []string
	Poll     *Poll
	NextQuiz bool
}

func TextReply(parts ...string) Reply {
	return Reply{Parts: parts}
}

// Alert is relayed to the administrators.
type Alert struct {
	Kind    string `json:"kind"`
	UserID  int64  `json:"user_id"`
	Trigger string `json:"trigger,omitempty"`
	Message string `json:"message"`
}

const (
	AlertBlocked = "blocked_message"
	AlertUser    = "user_alert"
)
