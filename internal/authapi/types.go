package authapi

import "inventario/internal/session"

type LoginResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

type Product struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	Quantity  int     `json:"quantity"`
	Location  *string `json:"location"`
	CreatedAt int64   `json:"created_at"`
}

type meResponse struct {
	User struct {
		Sub   string `json:"sub"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}
