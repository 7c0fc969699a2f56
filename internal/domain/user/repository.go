package user

import "context"

// Credentials holds the stored password material for a local account.
type Credentials struct {
	UserID       string
	PasswordHash string
}

// Repository handles user persistence for the local credential provider.
type Repository interface {
	Create(ctx context.Context, u *User, passwordHash string) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetCredentials(ctx context.Context, email string) (*Credentials, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, u *User) error
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
	Delete(ctx context.Context, id string) error
}
