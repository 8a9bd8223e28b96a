package session

import "inventario/internal/api/dto"

type User struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is what a successful login leaves behind. It has no expiry: the
// API answering 401 is the only thing that ends it besides a logout.
type Session struct {
	Token    string `json:"token"`
	User     User   `json:"user"`
	Remember bool   `json:"remember"`
}

func (s *Session) Valid() bool {
	return s != nil && s.Token != ""
}

func (s *Session) IsAdmin() bool {
	return s.Valid() && s.User.Role == dto.RoleAdmin
}
