package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the database model for the users table.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Listing is the database model for the listings table.
// OwnerID is written once at insert and never updated.
type Listing struct {
	bun.BaseModel `bun:"table:listings,alias:l"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	OwnerID     uuid.UUID `bun:"owner_id,notnull,type:uuid"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description"`
	Price       int64     `bun:"price,notnull"`
	ImageURL    string    `bun:"image_url,nullzero"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
