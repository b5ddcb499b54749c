package model

import "time"

// Order is the aggregated read model of an order: the header, the owning
// user and the live state of every referenced product.
type Order struct {
	ID          int64          `json:"id"`
	TotalAmount int            `json:"totalAmount"`
	CreatedAt   time.Time      `json:"createdAt"`
	User        *OrderUser     `json:"user"`
	Products    []OrderProduct `json:"products"`
}

// OrderUser is the user embedded in an order read.
type OrderUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// OrderProduct is a product as seen through an order.
type OrderProduct struct {
	ID         int64  `json:"id"`
	Name       string `json:"productName"`
	Price      int    `json:"price"`
	Code       string `json:"code"`
	Stock      int    `json:"stock"`
	IsArchived bool   `json:"isArchived"`
}

// ProductRef references a product by id in order payloads.
type ProductRef struct {
	ID int64 `json:"id" validate:"required,min=1"`
}

// CreateOrderRequest represents the request payload for creating an order.
type CreateOrderRequest struct {
	TotalAmount int          `json:"totalAmount" validate:"required,min=1"`
	UserID      int64        `json:"userId" validate:"required,min=1"`
	Products    []ProductRef `json:"products" validate:"required,min=1,dive"`
}

// UpdateOrderRequest represents a partial order update. A nil Products slice
// leaves the product set unchanged.
type UpdateOrderRequest struct {
	TotalAmount *int         `json:"totalAmount,omitempty" validate:"omitnil,min=1"`
	UserID      *int64       `json:"userId,omitempty" validate:"omitnil,min=1"`
	Products    []ProductRef `json:"products,omitempty" validate:"omitempty,dive"`
}

// NewOrder is the validated input handed to the order store.
type NewOrder struct {
	TotalAmount int
	UserID      int64
	ProductIDs  []int64
}

// OrderChanges is the validated partial update handed to the order store.
// A nil ProductIDs leaves the join rows untouched.
type OrderChanges struct {
	TotalAmount *int
	UserID      *int64
	ProductIDs  []int64
}

// ProductIDs flattens product references into ids.
func ProductIDs(refs []ProductRef) []int64 {
	if refs == nil {
		return nil
	}
	ids := make([]int64, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID
	}
	return ids
}
