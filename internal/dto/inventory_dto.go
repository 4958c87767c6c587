package dto

// LowStockAlert is one entry of the cached low-stock list. Remaining is in
// base units for variant-mode products and whole units otherwise.
type LowStockAlert struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Barcode   string `json:"barcode"`
	BaseUnit  string `json:"base_unit"`
	Remaining int64  `json:"remaining"`
	Threshold int64  `json:"threshold"`
}
