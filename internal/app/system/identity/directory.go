package identity

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/salesmake/internal/app/store/records"
	"github.com/dalemusser/salesmake/internal/app/system/inputval"
	"github.com/dalemusser/salesmake/internal/app/system/normalize"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

// credential is one stored identity.
type credential struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

// Directory stores identities and verifies passwords. It is shared by every
// Client.
type Directory struct {
	rs   records.Store
	cost int
}

// NewDirectory returns a Directory over rs using bcrypt.DefaultCost.
func NewDirectory(rs records.Store) *Directory {
	return &Directory{rs: rs, cost: bcrypt.DefaultCost}
}

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func (d *Directory) WithCost(cost int) *Directory {
	d.cost = cost
	return d
}

// Register creates an identity for email. The id is a random UUID.
func (d *Directory) Register(ctx context.Context, email, password string) (Identity, error) {
	email = normalize.Email(email)
	if !inputval.IsValidEmail(email) {
		return Identity{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLen {
		return Identity{}, ErrWeakPassword
	}

	_, err := d.rs.SelectOne(ctx, records.IdentitiesCollection, records.Query{
		Filter: records.Eq("email", email),
		Fields: []string{"_id"},
	})
	if err == nil {
		return Identity{}, ErrEmailTaken
	}
	if !errors.Is(err, records.ErrNotFound) {
		return Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return Identity{}, err
	}
	c := credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	rec, err := records.Encode(c)
	if err != nil {
		return Identity{}, err
	}
	if _, err := d.rs.Insert(ctx, records.IdentitiesCollection, rec); err != nil {
		if errors.Is(err, records.ErrDuplicate) {
			return Identity{}, ErrEmailTaken
		}
		return Identity{}, err
	}
	return Identity{ID: c.ID, Email: c.Email}, nil
}

// Verify checks email and password and returns the identity.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (d *Directory) Verify(ctx context.Context, email, password string) (Identity, error) {
	rec, err := d.rs.SelectOne(ctx, records.IdentitiesCollection, records.Query{
		Filter: records.Eq("email", normalize.Email(email)),
	})
	if errors.Is(err, records.ErrNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, err
	}

	var c credential
	if err := records.Decode(rec, &c); err != nil {
		return Identity{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{ID: c.ID, Email: c.Email}, nil
}
