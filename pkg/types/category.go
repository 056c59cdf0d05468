package types

import "time"

// Category belongs to a department and optionally to a parent category.
// Neither reference is checked by the client.
type Category struct {
	ID           ID        `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	DepartmentID ID        `json:"department_id"`
	ParentID     ID        `json:"parent_id,omitempty"`
	Active       int       `json:"active"`
	MetaTitle    *string   `json:"meta_title,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EntityID returns the category ID.
func (c Category) EntityID() ID { return c.ID }

// CategoryDraft is the payload for creating or updating a category.
type CategoryDraft struct {
	Name         string `json:"name" validate:"required"`
	Slug         string `json:"slug,omitempty"`
	DepartmentID ID     `json:"department_id" validate:"required"`
	ParentID     ID     `json:"parent_id,omitempty"`
}

// Set implements Draft.
func (d *CategoryDraft) Set(key string, value any) error {
	switch key {
	case "name":
		return setString(&d.Name, key, value)
	case "slug":
		return setString(&d.Slug, key, value)
	case "department_id":
		return setID(&d.DepartmentID, key, value)
	case "parent_id":
		return setID(&d.ParentID, key, value)
	default:
		return unknownField(key)
	}
}

// DraftFromCategory returns a draft pre-populated from c for an edit form.
func DraftFromCategory(c Category) CategoryDraft {
	return CategoryDraft{
		Name:         c.Name,
		Slug:         c.Slug,
		DepartmentID: c.DepartmentID,
		ParentID:     c.ParentID,
	}
}
