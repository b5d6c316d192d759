package gateway

type chatActionRequest struct {
	ChatID         int64 `json:"chat_id"`
	TelegramUserID int64 `json:"telegram_user_id"`
}

// ActionResponse is the success envelope of the chat action endpoints. A
// 2xx body can still carry OK=false, which is a logical failure and must
// never be conflated with success.
type ActionResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// The web app submits the Telegram ID as a string, and the backend
// decodes it that way; keep the wire type in sync.
type verifyRequest struct {
	InviteToken    string `json:"inviteToken"`
	TelegramUserID string `json:"telegram_user_id"`
	InitData       string `json:"initData"`
}

// VerifyResponse is the envelope of the token verification endpoint.
type VerifyResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type inviteResponse struct {
	Invite string `json:"invite"`
}
