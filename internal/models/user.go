package models

// RegisterRequest is the request body for POST /api/register
type RegisterRequest struct {
	Username string `json:"username"`
}

// AuthResponse is returned by both register and login. Token is only set on success.
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}

// OnlineUsersResponse is returned by GET /api/users/online
type OnlineUsersResponse struct {
	Users []string `json:"users"`
}
