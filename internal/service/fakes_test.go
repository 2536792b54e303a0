package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/generator"
	"github.com/sakif/ailogo/internal/model"
	"github.com/sakif/ailogo/internal/payment"
	"github.com/sakif/ailogo/internal/queue"
	"github.com/sakif/ailogo/internal/storage"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User

	createErr error
	getErr    error
	updates   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.users[u.ID]; ok {
		return apperror.Conflict("user", u.ID)
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (f *fakeUserRepo) UpdateUserProfile(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.users[u.ID] = *u
	return nil
}

// fakeLogoRepo keeps rows in insertion order and honours the version check
// of UpdateLogoStatus like the sqlite implementation.
type fakeLogoRepo struct {
	mu    sync.Mutex
	logos []model.Logo

	countErr  error
	updateErr error
}

func newFakeLogoRepo() *fakeLogoRepo {
	return &fakeLogoRepo{}
}

func (f *fakeLogoRepo) CreateLogo(_ context.Context, l *model.Logo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.logos {
		if existing.ID == l.ID {
			return apperror.Conflict("logo", l.ID)
		}
	}
	l.Version = 1
	f.logos = append(f.logos, *l)
	return nil
}

func (f *fakeLogoRepo) GetLogo(_ context.Context, userID, logoID string) (*model.Logo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.logos {
		if l.ID == logoID && l.UserID == userID {
			return &l, nil
		}
	}
	return nil, apperror.NotFound("logo", logoID)
}

func (f *fakeLogoRepo) ListUserLogos(_ context.Context, userID string) ([]model.Logo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Logo
	for i := len(f.logos) - 1; i >= 0; i-- {
		if f.logos[i].UserID == userID {
			out = append(out, f.logos[i])
		}
	}
	return out, nil
}

func (f *fakeLogoRepo) UpdateLogoStatus(_ context.Context, l *model.Logo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.logos {
		stored := &f.logos[i]
		if stored.ID != l.ID || stored.UserID != l.UserID {
			continue
		}
		if stored.Version != l.Version {
			return apperror.Conflict("logo", l.ID)
		}
		stored.Status = l.Status
		stored.ImageURL = l.ImageURL
		stored.StartedAt = l.StartedAt
		stored.Version++
		l.Version = stored.Version
		return nil
	}
	return apperror.NotFound("logo", l.ID)
}

func (f *fakeLogoRepo) CountUserLogos(_ context.Context, userID string, status model.LogoStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, l := range f.logos {
		if l.UserID == userID && (status == "" || l.Status == status) {
			n++
		}
	}
	return n, nil
}

func (f *fakeLogoRepo) get(t *testing.T, logoID string) model.Logo {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.logos {
		if l.ID == logoID {
			return l
		}
	}
	t.Fatalf("logo %s not stored", logoID)
	return model.Logo{}
}

// set overwrites stored fields without a version check.
func (f *fakeLogoRepo) set(logoID string, mutate func(*model.Logo)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.logos {
		if f.logos[i].ID == logoID {
			mutate(&f.logos[i])
		}
	}
}

func (f *fakeLogoRepo) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.logos)
}

type fakePublicLogoRepo struct {
	mu    sync.Mutex
	logos map[string]model.PublicLogo
}

func newFakePublicLogoRepo() *fakePublicLogoRepo {
	return &fakePublicLogoRepo{logos: make(map[string]model.PublicLogo)}
}

func (f *fakePublicLogoRepo) InsertPublicLogo(_ context.Context, l *model.PublicLogo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logos[l.ID] = *l
	return nil
}

func (f *fakePublicLogoRepo) DeletePublicLogo(_ context.Context, logoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.logos[logoID]; !ok {
		return apperror.NotFound("public logo", logoID)
	}
	delete(f.logos, logoID)
	return nil
}

func (f *fakePublicLogoRepo) PublicLogoExists(_ context.Context, logoID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.logos[logoID]
	return ok, nil
}

func (f *fakePublicLogoRepo) ListPublicLogos(_ context.Context) ([]model.PublicLogo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.PublicLogo, 0, len(f.logos))
	for _, l := range f.logos {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]model.Order

	listErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]model.Order)}
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, o *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[o.OrderNo]; ok {
		return apperror.Conflict("order", o.OrderNo)
	}
	f.orders[o.OrderNo] = *o
	return nil
}

func (f *fakeOrderRepo) GetOrder(_ context.Context, orderNo string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderNo]
	if !ok {
		return nil, apperror.NotFound("order", orderNo)
	}
	return &o, nil
}

func (f *fakeOrderRepo) SetOrderSession(_ context.Context, orderNo, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderNo]
	if !ok {
		return apperror.NotFound("order", orderNo)
	}
	o.StripeSessionID = sessionID
	f.orders[orderNo] = o
	return nil
}

func (f *fakeOrderRepo) MarkOrderPaid(_ context.Context, orderNo string, paidAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderNo]
	if !ok {
		return apperror.NotFound("order", orderNo)
	}
	if o.Status == model.OrderPaid {
		return nil
	}
	o.Status = model.OrderPaid
	o.PaidAt = &paidAt
	f.orders[orderNo] = o
	return nil
}

func (f *fakeOrderRepo) ListUserOrders(_ context.Context, userID string) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

// =========================================================================
// FAKE BACKENDS
// =========================================================================

type fakeQueue struct {
	mu   sync.Mutex
	jobs []queue.Job
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, job queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context) (queue.Job, error) {
	<-ctx.Done()
	return queue.Job{}, ctx.Err()
}

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) last(t *testing.T) queue.Job {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		t.Fatal("no job enqueued")
	}
	return q.jobs[len(q.jobs)-1]
}

type fakeGenerator struct {
	mu       sync.Mutex
	image    *generator.Image
	err      error
	requests []generator.Request
	// called before returning, outside the lock
	hook func()
}

func (g *fakeGenerator) Generate(_ context.Context, req generator.Request) (*generator.Image, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	img, err, hook := g.image, g.err, g.hook
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	return img, err
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotExist
	}
	return data, nil
}

func (s *fakeStore) URL(key string) string {
	return "https://cdn.test/" + key
}

type fakeCheckout struct {
	sessions  map[string]*payment.Session
	created   []*model.Order
	createErr error
	nextID    int
}

func newFakeCheckout() *fakeCheckout {
	return &fakeCheckout{sessions: make(map[string]*payment.Session)}
}

func (c *fakeCheckout) CreateSession(_ context.Context, order *model.Order, successURL, _ string) (*payment.Session, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.nextID++
	s := &payment.Session{
		ID:      fmt.Sprintf("cs_test_%d", c.nextID),
		URL:     "https://checkout.test/" + order.OrderNo + "?next=" + successURL,
		OrderNo: order.OrderNo,
	}
	c.sessions[s.ID] = s
	c.created = append(c.created, order)
	return s, nil
}

func (c *fakeCheckout) GetSession(_ context.Context, id string) (*payment.Session, error) {
	s, ok := c.sessions[id]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	return s, nil
}

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock returns a clock the test can move.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fixedClock {
	return &fixedClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBoom = errors.New("boom")

func testIdentity(n int64) model.Identity {
	return model.Identity{
		Subject:   fmt.Sprintf("gh_%d", n),
		GitHubID:  n,
		Login:     fmt.Sprintf("user%d", n),
		Email:     fmt.Sprintf("user%d@example.com", n),
		AvatarURL: fmt.Sprintf("https://avatars.test/%d", n),
	}
}
