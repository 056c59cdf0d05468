package types

import "time"

// Product statuses.
const (
	ProductStatusActive       = "active"
	ProductStatusInactive     = "inactive"
	ProductStatusOutOfStock   = "out_of_stock"
	ProductStatusDiscontinued = "discontinued"
	ProductStatusPublished    = "published"
)

// Product is a sellable item filed under one department and one category.
type Product struct {
	ID           ID         `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Description  string     `json:"description"`
	Price        float64    `json:"price"`
	Status       string     `json:"status"`
	DepartmentID ID         `json:"department_id"`
	CategoryID   ID         `json:"category_id"`
	Quantity     *int       `json:"quantity"`
	CreatedBy    ID         `json:"created_by"`
	UpdatedBy    ID         `json:"updated_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at"`
}

// EntityID returns the product ID.
func (p Product) EntityID() ID { return p.ID }

// ProductDraft is the payload for creating or updating a product. Slug is
// filled in from Name when the product is created and omitted otherwise.
type ProductDraft struct {
	Name         string  `json:"name" validate:"required"`
	Slug         string  `json:"slug,omitempty"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" validate:"gte=0"`
	Status       string  `json:"status" validate:"required,oneof=active inactive out_of_stock discontinued published"`
	DepartmentID ID      `json:"department_id" validate:"required"`
	CategoryID   ID      `json:"category_id" validate:"required"`
	Quantity     *int    `json:"quantity"`
	CreatedBy    ID      `json:"created_by,omitempty"`
	UpdatedBy    ID      `json:"updated_by,omitempty"`
}

// NewProductDraft returns the empty product form.
func NewProductDraft() ProductDraft {
	return ProductDraft{Status: ProductStatusActive}
}

// Set implements Draft.
func (d *ProductDraft) Set(key string, value any) error {
	switch key {
	case "name":
		return setString(&d.Name, key, value)
	case "slug":
		return setString(&d.Slug, key, value)
	case "description":
		return setString(&d.Description, key, value)
	case "price":
		return setFloat(&d.Price, key, value)
	case "status":
		return setString(&d.Status, key, value)
	case "department_id":
		return setID(&d.DepartmentID, key, value)
	case "category_id":
		return setID(&d.CategoryID, key, value)
	case "quantity":
		return setOptionalInt(&d.Quantity, key, value)
	case "created_by":
		return setID(&d.CreatedBy, key, value)
	case "updated_by":
		return setID(&d.UpdatedBy, key, value)
	default:
		return unknownField(key)
	}
}

// DraftFromProduct returns a draft pre-populated from p for an edit form.
// The slug is left out: it is derived once, at creation.
func DraftFromProduct(p Product) ProductDraft {
	d := ProductDraft{
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Status:       p.Status,
		DepartmentID: p.DepartmentID,
		CategoryID:   p.CategoryID,
		CreatedBy:    p.CreatedBy,
		UpdatedBy:    p.UpdatedBy,
	}
	if p.Quantity != nil {
		q := *p.Quantity
		d.Quantity = &q
	}
	return d
}

// ProductFilter narrows a product listing. Zero fields are not sent.
type ProductFilter struct {
	CategoryID   ID
	DepartmentID ID
	Status       string
	MinPrice     *float64
	MaxPrice     *float64
	Search       string
}
