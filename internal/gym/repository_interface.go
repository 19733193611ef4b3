package gym

import "context"

type Repository interface {
	Create(ctx context.Context, g *Gym) (*Gym, error)
	GetByID(ctx context.Context, id int) (*Gym, error)
	FindByUsername(ctx context.Context, username string) (*Gym, error)
	FindByEmail(ctx context.Context, email string) (*Gym, error)
	ListAll(ctx context.Context) ([]Gym, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	SetLogoURL(ctx context.Context, id int, url string) (*Gym, error)
}
