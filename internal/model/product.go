package model

import "time"

// Product is a catalogue item. Code is assigned by the store on creation and
// never changes afterwards.
type Product struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"productName" db:"productName"`
	Price      int       `json:"price" db:"price"`
	Code       string    `json:"code" db:"code"`
	Stock      int       `json:"stock" db:"stock"`
	IsArchived bool      `json:"isArchived" db:"isArchived"`
	CreatedAt  time.Time `json:"createdAt" db:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updatedAt"`
}

// ProductArchive is the immutable snapshot written when a product is archived.
type ProductArchive struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"productName" db:"productName"`
	Price     int       `json:"price" db:"price"`
	Code      string    `json:"code" db:"code"`
	Stock     int       `json:"stock" db:"stock"`
	CreatedAt time.Time `json:"createdAt" db:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" db:"updatedAt"`
}

// CreateProductRequest represents the request payload for creating a product.
type CreateProductRequest struct {
	Name  string `json:"productName" validate:"required,max=255"`
	Price int    `json:"price" validate:"min=1000,max=100000"`
	Stock int    `json:"stock" validate:"min=1,max=1000"`
}

// UpdateProductRequest represents a partial product update. Nil fields are
// left unchanged.
type UpdateProductRequest struct {
	Name  *string `json:"productName,omitempty" validate:"omitnil,min=1,max=255"`
	Price *int    `json:"price,omitempty" validate:"omitnil,min=1000,max=100000"`
	Stock *int    `json:"stock,omitempty" validate:"omitnil,min=1,max=1000"`
}

// IsEmpty reports whether the update carries no changes.
func (r UpdateProductRequest) IsEmpty() bool {
	return r.Name == nil && r.Price == nil && r.Stock == nil
}
