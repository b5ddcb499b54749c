package model

// Stock category labels.
const (
	StockLow    = "Low"
	StockMedium = "Medium"
	StockHigh   = "High"
)

// StockCategory counts products falling into one stock band.
type StockCategory struct {
	Category string `json:"stockCategory"`
	Count    int64  `json:"productCount"`
}

// UserOrderTotal is one row of the user ranking by total order amount.
type UserOrderTotal struct {
	UserID           int64  `json:"userId"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	TotalOrderAmount int64  `json:"totalOrderAmount"`
}
