package dto

// PreflightData carries the extra data some access rules demand before an
// attempt may start or continue.
type PreflightData struct {
	Password string `json:"password,omitempty"`
}

type StartAttemptRequest struct {
	UserID    uint          `json:"user_id" binding:"required"`
	Preview   bool          `json:"preview"`
	ForceNew  bool          `json:"force_new"`
	Preflight PreflightData `json:"preflight"`
}

type RecordResponsesRequest struct {
	UserID uint `json:"user_id" binding:"required"`
	// Page scopes the recording; nil means all pages.
	Page *int `json:"page,omitempty"`
	// Responses maps slot number to raw response data.
	Responses map[int]string `json:"responses" binding:"required"`
	// Offline marks responses that arrived via a non-interactive channel.
	Offline   bool          `json:"offline"`
	Preflight PreflightData `json:"preflight"`
}

type FinishAttemptRequest struct {
	UserID    uint           `json:"user_id" binding:"required"`
	Responses map[int]string `json:"responses,omitempty"`
	// TimeUp marks a finish triggered by the client-side countdown reaching
	// zero rather than an explicit submit.
	TimeUp    bool          `json:"time_up"`
	Preflight PreflightData `json:"preflight"`
}
