package api

// User is the public view of an account as returned by the auth endpoints.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// SignUpRequest is the body of POST /api/auth/signup.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// SignInRequest is the body of POST /api/auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and signin.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// UpdateRequest is the body of PATCH /api/{table}/{id}: only the fields to
// change, never the whole record.
type UpdateRequest map[string]any

// ErrorResponse is the JSON error envelope for all non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
