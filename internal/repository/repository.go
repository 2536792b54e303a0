// Package repository declares the storage contracts the services depend on.
// Implementations live in subpackages (see repository/sqlite).
package repository

import (
	"context"
	"time"

	"github.com/sakif/ailogo/internal/model"
)

type UserRepository interface {
	// CreateUser inserts a new account. Returns apperror.ErrConflict when the
	// id is already taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUserProfile(ctx context.Context, user *model.User) error
}

// LogoRepository stores logo records, one row per record, scoped by owner.
type LogoRepository interface {
	CreateLogo(ctx context.Context, logo *model.Logo) error
	// GetLogo returns apperror.ErrNotFound unless logoID exists and is owned
	// by userID.
	GetLogo(ctx context.Context, userID, logoID string) (*model.Logo, error)
	// ListUserLogos returns the user's logos, most recent first.
	ListUserLogos(ctx context.Context, userID string) ([]model.Logo, error)
	// UpdateLogoStatus writes status, image URL and start time if the stored
	// version still equals logo.Version, then bumps logo.Version. A version
	// mismatch returns apperror.ErrConflict.
	UpdateLogoStatus(ctx context.Context, logo *model.Logo) error
	// CountUserLogos counts the user's logos; an empty status counts all.
	CountUserLogos(ctx context.Context, userID string, status model.LogoStatus) (int, error)
}

type PublicLogoRepository interface {
	InsertPublicLogo(ctx context.Context, logo *model.PublicLogo) error
	// DeletePublicLogo returns apperror.ErrNotFound when no snapshot exists.
	DeletePublicLogo(ctx context.Context, logoID string) error
	PublicLogoExists(ctx context.Context, logoID string) (bool, error)
	// ListPublicLogos returns snapshots ordered by the logo's creation time,
	// newest first.
	ListPublicLogos(ctx context.Context) ([]model.PublicLogo, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, orderNo string) (*model.Order, error)
	SetOrderSession(ctx context.Context, orderNo, sessionID string) error
	// MarkOrderPaid moves a created order to paid. Paying an already paid
	// order is a no-op.
	MarkOrderPaid(ctx context.Context, orderNo string, paidAt time.Time) error
	ListUserOrders(ctx context.Context, userID string) ([]model.Order, error)
}
