package dto

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,emailshape"`
	Password string `json:"password" validate:"required,passwordlen"`
}

// CreateUserRequest is the body of POST /admin/users. Role is sent as picked
// and is left for the API to check.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"fullname"`
	Email    string `json:"email" validate:"required,emailshape"`
	Password string `json:"password" validate:"required,passwordlen"`
	Role     string `json:"role"`
}

// ErrorResponse is the failure body the API sends. Detail is either a string
// or a list of validation problems.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

// RegisterRequest is the body of POST /auth/register. The API makes every
// self-registered account an admin.
type RegisterRequest struct {
	Name     string `json:"name" validate:"fullname"`
	Email    string `json:"email" validate:"required,emailshape"`
	Password string `json:"password" validate:"required,passwordlen"`
}
