package listing

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayledger/internal/domain/shared/money"
)

var (
	ErrTitleRequired     = errors.New("listing: title is required")
	ErrInvalidCategory   = errors.New("listing: unknown category")
	ErrInvalidPrice      = errors.New("listing: price must be positive")
	ErrGuestCapacity     = errors.New("listing: guest capacity must be at least 1")
	ErrInvalidState      = errors.New("listing: invalid state transition")
	ErrListingNotFound   = errors.New("listing: not found")
	ErrListingNotActive  = errors.New("listing: not active")
	ErrCapacityExceeded  = errors.New("listing: guest count exceeds capacity")
)

type ListingID string
type HostID string

type Category string

const (
	// CategoryHome is priced per night over the booked range.
	CategoryHome Category = "HOME"
	// CategoryExperience and CategoryService carry a flat price; the date
	// range only schedules the slot.
	CategoryExperience Category = "EXPERIENCE"
	CategoryService    Category = "SERVICE"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryHome, CategoryExperience, CategoryService:
		return true
	}
	return false
}

// FlatPriced reports whether the category charges a flat amount instead of
// a nightly rate.
func (c Category) FlatPriced() bool {
	return c == CategoryExperience || c == CategoryService
}

type State string

const (
	StateActive   State = "ACTIVE"
	StateInactive State = "INACTIVE"
	StateDeleted  State = "DELETED"
)

type Listing struct {
	ID            ListingID
	Host          HostID
	Title         string
	Description   string
	Category      Category
	Price         money.Money // per night for HOME, flat otherwise
	GuestCapacity int
	State         State
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	ListByHost(ctx context.Context, host HostID) ([]*Listing, error)
}

type CreateParams struct {
	ID            ListingID
	Host          HostID
	Title         string
	Description   string
	Category      Category
	Price         money.Money
	GuestCapacity int
	Now           time.Time
}

func New(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if !params.Category.Valid() {
		return nil, ErrInvalidCategory
	}
	if params.Price.Amount <= 0 || params.Price.Currency == "" {
		return nil, ErrInvalidPrice
	}
	if params.GuestCapacity < 1 {
		return nil, ErrGuestCapacity
	}
	now := params.Now.UTC()
	return &Listing{
		ID:            params.ID,
		Host:          params.Host,
		Title:         strings.TrimSpace(params.Title),
		Description:   params.Description,
		Category:      params.Category,
		Price:         params.Price,
		GuestCapacity: params.GuestCapacity,
		State:         StateActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Bookable validates that the listing can accept a new booking for the
// requested party size. Only ACTIVE listings hold inventory.
func (l *Listing) Bookable(guests int) error {
	if l.State != StateActive {
		return ErrListingNotActive
	}
	if guests > l.GuestCapacity {
		return ErrCapacityExceeded
	}
	return nil
}

func (l *Listing) Deactivate(now time.Time) error {
	if l.State != StateActive {
		return ErrInvalidState
	}
	l.State = StateInactive
	l.UpdatedAt = now.UTC()
	return nil
}

func (l *Listing) Delete(now time.Time) error {
	if l.State == StateDeleted {
		return ErrInvalidState
	}
	l.State = StateDeleted
	l.UpdatedAt = now.UTC()
	return nil
}
