package types

import "time"

// Department is the top level of the catalog taxonomy.
type Department struct {
	ID              ID        `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	MetaTitle       *string   `json:"meta_title"`
	MetaDescription *string   `json:"meta_description"`
	Active          int       `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EntityID returns the department ID.
func (d Department) EntityID() ID { return d.ID }

// DepartmentDraft is the payload for creating or updating a department.
type DepartmentDraft struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug" validate:"required"`
}

// Set implements Draft.
func (d *DepartmentDraft) Set(key string, value any) error {
	switch key {
	case "name":
		return setString(&d.Name, key, value)
	case "slug":
		return setString(&d.Slug, key, value)
	default:
		return unknownField(key)
	}
}

// DraftFromDepartment returns a draft pre-populated from d for an edit form.
func DraftFromDepartment(d Department) DepartmentDraft {
	return DepartmentDraft{Name: d.Name, Slug: d.Slug}
}
