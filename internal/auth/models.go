package auth

// DevAuthRequest is the optional body of POST /v1/auth/dev.
type DevAuthRequest struct {
	UserID      string `json:"user_id" validate:"omitempty,max=128"`
	DisplayName string `json:"display_name" validate:"omitempty,max=80"`
}

// DevAuthResponse carries a bearer token for the local dev user.
type DevAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
}
