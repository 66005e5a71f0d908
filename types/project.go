package types

import "strings"

// Project is a portfolio entry. Projects are created out-of-band (seed or
// admin CLI) and are read-only for web visitors.
type Project struct {
	ID          int    `json:"id" db:"id"`
	Title       string `json:"title" db:"title" validate:"required,max=100"`
	Description string `json:"description" db:"description" validate:"required,max=300"`

	// Link is an optional URL to the project.
	Link *string `json:"link,omitempty" db:"link" validate:"omitempty,url,max=200"`

	// Image is either an absolute URL or an object storage key.
	Image *string `json:"image,omitempty" db:"image" validate:"omitempty,max=200"`
}

// LinkURL returns the project link or an empty string.
func (p Project) LinkURL() string {
	if p.Link == nil {
		return ""
	}
	return *p.Link
}

// ImageRef returns the image reference or an empty string.
func (p Project) ImageRef() string {
	if p.Image == nil {
		return ""
	}
	return *p.Image
}

// ImageIsURL reports whether the image reference points outside object storage.
func (p Project) ImageIsURL() bool {
	ref := p.ImageRef()
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "/")
}
