package memory

import (
	"context"
	"sort"
	"sync"

	domainactor "stayledger/internal/domain/actor"
	domainbooking "stayledger/internal/domain/booking"
	domaincoupon "stayledger/internal/domain/coupon"
	domainledger "stayledger/internal/domain/ledger"
	domainlisting "stayledger/internal/domain/listing"
)

// ListingRepository is an in-memory implementation backing dev mode and tests.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlisting.ListingID]domainlisting.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[domainlisting.ListingID]domainlisting.Listing)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ListingID) (*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domainlisting.ErrListingNotFound
	}
	snapshot := item
	return &snapshot, nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlisting.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.Version++
	r.items[l.ID] = *l
	return nil
}

func (r *ListingRepository) ListByHost(ctx context.Context, host domainlisting.HostID) ([]*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainlisting.Listing, 0)
	for _, item := range r.items {
		if item.Host == host {
			snapshot := item
			out = append(out, &snapshot)
		}
	}
	return out, nil
}

// BookingRepository keeps bookings guarded by an optimistic version check.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	snapshot := item
	snapshot.ClearEvents()
	return &snapshot, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[b.ID]; ok && existing.Version != b.Version {
		return domainledger.ErrConcurrentUpdate
	}
	b.Version++
	stored := *b
	stored.ClearEvents()
	r.items[b.ID] = stored
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.filter(func(b domainbooking.Booking) bool { return b.GuestID == guestID })
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.filter(func(b domainbooking.Booking) bool { return b.HostID == hostID })
}

func (r *BookingRepository) ListByListing(ctx context.Context, id domainlisting.ListingID, statuses ...domainbooking.Status) ([]*domainbooking.Booking, error) {
	return r.filter(func(b domainbooking.Booking) bool {
		if b.ListingID != id {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if b.Status == s {
				return true
			}
		}
		return false
	})
}

func (r *BookingRepository) filter(match func(domainbooking.Booking) bool) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, item := range r.items {
		if match(item) {
			snapshot := item
			snapshot.ClearEvents()
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AccountRepository performs the compare-and-swap that the ledger
// contract requires: a save with a stale version loses.
type AccountRepository struct {
	mu    sync.Mutex
	items map[string]domainledger.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{items: make(map[string]domainledger.Account)}
}

func (r *AccountRepository) ByActor(ctx context.Context, actorID string) (*domainledger.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[actorID]
	if !ok {
		return nil, domainledger.ErrAccountNotFound
	}
	snapshot := item
	return &snapshot, nil
}

func (r *AccountRepository) Save(ctx context.Context, a *domainledger.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[a.ActorID]; ok && existing.Version != a.Version {
		return domainledger.ErrConcurrentUpdate
	}
	a.Version++
	r.items[a.ActorID] = *a
	return nil
}

// TransactionRepository is append-only.
type TransactionRepository struct {
	mu   sync.RWMutex
	rows []domainledger.Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{}
}

func (r *TransactionRepository) Append(ctx context.Context, tx domainledger.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, tx)
	return nil
}

func (r *TransactionRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]domainledger.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainledger.Transaction, 0)
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].ActorID != actorID {
			continue
		}
		out = append(out, r.rows[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *TransactionRepository) ListByBooking(ctx context.Context, bookingID string) ([]domainledger.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainledger.Transaction, 0)
	for _, row := range r.rows {
		if row.BookingID == bookingID {
			out = append(out, row)
		}
	}
	return out, nil
}

// CouponRepository guards redemption with the same optimistic check as
// accounts so a coupon cannot be consumed twice by racing bookings.
type CouponRepository struct {
	mu    sync.Mutex
	items map[domaincoupon.CouponID]domaincoupon.Coupon
}

func NewCouponRepository() *CouponRepository {
	return &CouponRepository{items: make(map[domaincoupon.CouponID]domaincoupon.Coupon)}
}

func (r *CouponRepository) ByID(ctx context.Context, id domaincoupon.CouponID) (*domaincoupon.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domaincoupon.ErrCouponNotFound
	}
	snapshot := item
	return &snapshot, nil
}

func (r *CouponRepository) Save(ctx context.Context, c *domaincoupon.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[c.ID]; ok {
		if existing.Version != c.Version {
			return domainledger.ErrConcurrentUpdate
		}
		if existing.Used && c.Used {
			return domaincoupon.ErrCouponUsed
		}
	}
	c.Version++
	r.items[c.ID] = *c
	return nil
}

// ActorRepository and SessionStore back the auth service.
type ActorRepository struct {
	mu      sync.RWMutex
	byID    map[domainactor.ActorID]domainactor.Actor
	byEmail map[string]domainactor.ActorID
}

func NewActorRepository() *ActorRepository {
	return &ActorRepository{
		byID:    make(map[domainactor.ActorID]domainactor.Actor),
		byEmail: make(map[string]domainactor.ActorID),
	}
}

func (r *ActorRepository) ByID(ctx context.Context, id domainactor.ActorID) (*domainactor.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.byID[id]
	if !ok {
		return nil, domainactor.ErrActorNotFound
	}
	snapshot := item
	return &snapshot, nil
}

func (r *ActorRepository) ByEmail(ctx context.Context, email string) (*domainactor.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[domainactor.NormalizeEmail(email)]
	if !ok {
		return nil, domainactor.ErrActorNotFound
	}
	item := r.byID[id]
	snapshot := item
	return &snapshot, nil
}

func (r *ActorRepository) Save(ctx context.Context, a *domainactor.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = *a
	r.byEmail[domainactor.NormalizeEmail(a.Email)] = a.ID
	return nil
}

type SessionStore struct {
	mu    sync.RWMutex
	items map[string]domainactor.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{items: make(map[string]domainactor.Session)}
}

func (s *SessionStore) Put(ctx context.Context, session domainactor.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[session.Token] = session
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (domainactor.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.items[token]
	if !ok {
		return domainactor.Session{}, domainactor.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
	return nil
}
