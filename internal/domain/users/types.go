package users

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("a user with that email already exists")
)

type User struct {
	ID                 int64      `json:"id"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	Email              string     `json:"email"`
	Password           password   `json:"-"` // Hide password
	IsAdmin            bool       `json:"is_admin"`
	IsActive           bool       `json:"is_active"`
	BannedAt           *time.Time `json:"banned_at,omitempty"`
	Bio                *string    `json:"bio,omitempty"`
	AvatarURL          *string    `json:"avatar_url,omitempty"`
	Location           *string    `json:"location,omitempty"`
	IsPublic           bool       `json:"is_public"`
	EmailNotifications bool       `json:"email_notifications"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	RefreshToken       string     `json:"-"` // Sensitive data
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Password struct to store plain text and hash
type password struct {
	text *string `json:"-"` // Hide plaintext password
	hash []byte  `json:"-"` // Hide hashed password
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}

// Hash exposes the stored hash for persistence.
func (p *password) Hash() []byte {
	return p.hash
}

// SetHash loads an already-hashed password read back from the database.
func (p *password) SetHash(hash []byte) {
	p.hash = hash
}

type AdminListFilters struct {
	Search   *string // name or email
	IsActive *bool
	IsAdmin  *bool
}

type Store interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, userID int64, updateData map[string]interface{}) error
	SetAvatar(ctx context.Context, userID int64, avatarURL string) error
	SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error
	GetRefreshToken(ctx context.Context, userID int64) (string, error)
	DeleteRefreshToken(ctx context.Context, userID int64) error
	RecordLogin(ctx context.Context, userID int64) error
	Ban(ctx context.Context, userID int64) error
	Unban(ctx context.Context, userID int64) error
	// Delete is a soft delete; the user's reviews stay and keep counting.
	Delete(ctx context.Context, userID int64) error
	ListAdmin(ctx context.Context, filters AdminListFilters, limit, offset int) ([]User, int, error)
}
