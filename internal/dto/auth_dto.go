package dto

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
	CashierID string `json:"cashier_id"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
}
