package listing

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Listing is a marketplace resource. OwnerID is set at creation and is
// never client-writable afterwards.
type Listing struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input carries the client-writable fields of a listing. Identifier and
// owner are deliberately absent.
type Input struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

// Upload is an attached file from a multipart request.
type Upload struct {
	Content  io.Reader
	Filename string
}
