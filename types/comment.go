package types

import "time"

// Comment is feedback left on a project by a signed-in user.
type Comment struct {
	ID int `json:"id" db:"id"`

	// Username and Email are display copies taken from the author at
	// creation time. They survive the author's account being removed.
	Username string `json:"username" db:"username"`
	Email    string `json:"email" db:"email"`

	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// AuthorID is nil when the authoring user no longer exists.
	AuthorID *int `json:"author_id,omitempty" db:"author_id"`

	// ProjectID references the owning project. Deleting the project
	// deletes the comment.
	ProjectID int `json:"project_id" db:"project_id"`
}

// IsAuthoredBy reports whether userID wrote the comment.
func (c Comment) IsAuthoredBy(userID int) bool {
	return c.AuthorID != nil && *c.AuthorID == userID
}
