package models

// Session is the server-recognized proof that a client has logged in.
type Session struct {
	ID       string `json:"id,omitempty"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}
