package dto

// ProductRequest is the body of POST /products and PUT /products/{id}.
type ProductRequest struct {
	Name     string  `json:"name"`
	SKU      string  `json:"sku"`
	Quantity int     `json:"quantity"`
	Location *string `json:"location,omitempty"`
}
