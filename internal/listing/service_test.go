package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bricabrac/listings-api/internal/logging"
)

// fakeRepo is an in-memory Repository.
type fakeRepo struct {
	items map[uuid.UUID]*Listing
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[uuid.UUID]*Listing)}
}

func (r *fakeRepo) Insert(ctx context.Context, l *Listing) error {
	now := time.Now()
	l.CreatedAt = now
	l.UpdatedAt = now
	cp := *l
	r.items[l.ID] = &cp
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	l, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeRepo) UpdateByID(ctx context.Context, l *Listing) error {
	existing, ok := r.items[l.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = l.Title
	existing.Description = l.Description
	existing.Price = l.Price
	existing.ImageURL = l.ImageURL
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeRepo) List(ctx context.Context) ([]Listing, error) {
	out := make([]Listing, 0, len(r.items))
	for _, l := range r.items {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// fakeStore records stored and released artifacts.
type fakeStore struct {
	stored     map[string]string // url -> content
	releaseErr error
	storeErr   error
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{stored: make(map[string]string)}
}

func (s *fakeStore) Store(ctx context.Context, content io.Reader, originalName, origin string) (string, error) {
	if s.storeErr != nil {
		return "", s.storeErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	s.nextID++
	url := fmt.Sprintf("%s/images/artifact-%d", origin, s.nextID)
	s.stored[url] = string(data)
	return url, nil
}

func (s *fakeStore) Release(ctx context.Context, url string) error {
	if s.releaseErr != nil {
		return s.releaseErr
	}
	delete(s.stored, url) // absent url is still success
	return nil
}

func (s *fakeStore) has(url string) bool {
	_, ok := s.stored[url]
	return ok
}

// fakeCache is an in-memory Cache that records invalidations. A non-nil
// err makes every operation fail, as if the backend were unreachable.
type fakeCache struct {
	list          []Listing
	items         map[uuid.UUID]*Listing
	err           error
	invalidateErr error
	invalidations []uuid.UUID
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[uuid.UUID]*Listing)}
}

func (c *fakeCache) GetList(ctx context.Context) ([]Listing, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.list == nil {
		return nil, ErrCacheMiss
	}
	return c.list, nil
}

func (c *fakeCache) SetList(ctx context.Context, listings []Listing) error {
	if c.err != nil {
		return c.err
	}
	c.list = append([]Listing(nil), listings...)
	return nil
}

func (c *fakeCache) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	if c.err != nil {
		return nil, c.err
	}
	l, ok := c.items[id]
	if !ok {
		return nil, ErrCacheMiss
	}
	cp := *l
	return &cp, nil
}

func (c *fakeCache) SetByID(ctx context.Context, l *Listing) error {
	if c.err != nil {
		return c.err
	}
	cp := *l
	c.items[l.ID] = &cp
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	c.invalidations = append(c.invalidations, id)
	c.list = nil
	delete(c.items, id)
	return nil
}

func newTestService() (*Service, *fakeRepo, *fakeStore) {
	repo := newFakeRepo()
	store := newFakeStore()
	svc := NewService(repo, store, nil, logging.NewLogger(true))
	return svc, repo, store
}

func upload(content string) *Upload {
	return &Upload{Content: strings.NewReader(content), Filename: "chair.jpg"}
}

const origin = "http://localhost:8080"

func TestService_Create(t *testing.T) {
	t.Parallel()

	svc, repo, store := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	l, err := svc.Create(ctx, owner, Input{Title: "Chair", Price: 4200}, upload("img"), origin)
	require.NoError(t, err)

	assert.Equal(t, owner, l.OwnerID)
	assert.NotEqual(t, uuid.Nil, l.ID)
	assert.NotEmpty(t, l.ImageURL)
	assert.True(t, store.has(l.ImageURL), "artifact must exist in storage")

	persisted, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chair", persisted.Title)
	assert.Equal(t, l.ImageURL, persisted.ImageURL)
}

func TestService_Create_NoUpload(t *testing.T) {
	t.Parallel()

	svc, _, store := newTestService()

	l, err := svc.Create(context.Background(), uuid.New(), Input{Title: "Chair"}, nil, origin)
	require.NoError(t, err)
	assert.Empty(t, l.ImageURL)
	assert.Empty(t, store.stored)
}

func TestService_Create_StoreFailureAborts(t *testing.T) {
	t.Parallel()

	svc, repo, store := newTestService()
	store.storeErr = errors.New("disk full")

	_, err := svc.Create(context.Background(), uuid.New(), Input{Title: "Chair"}, upload("img"), origin)
	require.Error(t, err)

	// No record may reference a file that was never written.
	assert.Empty(t, repo.items)
}

func TestService_Update_Owner(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, Input{Title: "Chair", Price: 100}, nil, origin)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, owner, created.ID, Input{Title: "Better chair", Price: 200}, nil, origin)
	require.NoError(t, err)
	assert.Equal(t, "Better chair", updated.Title)
	assert.Equal(t, int64(200), updated.Price)
	// Owner is never client-writable.
	assert.Equal(t, owner, updated.OwnerID)

	persisted, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Better chair", persisted.Title)
}

func TestService_Update_Forbidden(t *testing.T) {
	t.Parallel()

	svc, repo, store := newTestService()
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	created, err := svc.Create(ctx, owner, Input{Title: "Chair"}, upload("img"), origin)
	require.NoError(t, err)

	_, err = svc.Update(ctx, stranger, created.ID, Input{Title: "Stolen"}, nil, origin)
	assert.ErrorIs(t, err, ErrForbidden)

	// Record and artifact untouched.
	persisted, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chair", persisted.Title)
	assert.True(t, store.has(created.ImageURL))
}

func TestService_Update_NotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()

	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), Input{Title: "X"}, nil, origin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Update_ReplacesImage(t *testing.T) {
	t.Parallel()

	svc, repo, store := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, Input{Title: "Chair"}, upload("old"), origin)
	require.NoError(t, err)
	oldURL := created.ImageURL

	updated, err := svc.Update(ctx, owner, created.ID, Input{Title: "Chair"}, upload("new"), origin)
	require.NoError(t, err)

	assert.NotEqual(t, oldURL, updated.ImageURL)
	assert.False(t, store.has(oldURL), "old artifact must be released")
	assert.True(t, store.has(updated.ImageURL))

	persisted, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.ImageURL, persisted.ImageURL)
}

func TestService_Delete_Owner(t *testing.T) {
	t.Parallel()

	svc, _, store := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, Input{Title: "Chair"}, upload("img"), origin)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, store.has(created.ImageURL), "artifact must be gone")
}

func TestService_Delete_Forbidden(t *testing.T) {
	t.Parallel()

	svc, _, store := newTestService()
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	created, err := svc.Create(ctx, owner, Input{Title: "Chair"}, upload("img"), origin)
	require.NoError(t, err)

	err = svc.Delete(ctx, stranger, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// Record and artifact unchanged.
	_, err = svc.Get(ctx, created.ID)
	assert.NoError(t, err)
	assert.True(t, store.has(created.ImageURL))
}

func TestService_Delete_NotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()

	err := svc.Delete(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Delete_ReleaseFailureDoesNotBlock(t *testing.T) {
	t.Parallel()

	svc, repo, store := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, Input{Title: "Chair"}, upload("img"), origin)
	require.NoError(t, err)

	// Release failures are logged and swallowed; the record still goes.
	store.releaseErr = errors.New("storage briefly offline")

	require.NoError(t, svc.Delete(ctx, owner, created.ID))
	assert.Empty(t, repo.items)
}

func newCachedTestService() (*Service, *fakeRepo, *fakeCache) {
	repo := newFakeRepo()
	cache := newFakeCache()
	svc := NewService(repo, newFakeStore(), cache, logging.NewLogger(true))
	return svc, repo, cache
}

func TestService_Get_CacheHit(t *testing.T) {
	t.Parallel()

	svc, _, cache := newCachedTestService()
	ctx := context.Background()

	// Present only in the cache; a hit must not reach the repository.
	cached := &Listing{ID: uuid.New(), Title: "Cached chair"}
	require.NoError(t, cache.SetByID(ctx, cached))

	got, err := svc.Get(ctx, cached.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cached chair", got.Title)
}

func TestService_Get_CacheMissPopulates(t *testing.T) {
	t.Parallel()

	svc, _, cache := newCachedTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, uuid.New(), Input{Title: "Chair"}, nil, origin)
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chair", got.Title)

	// The miss warmed the cache.
	warmed, err := cache.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chair", warmed.Title)
}

func TestService_CacheOutageFallsThroughToRepo(t *testing.T) {
	t.Parallel()

	svc, _, cache := newCachedTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, uuid.New(), Input{Title: "Chair"}, nil, origin)
	require.NoError(t, err)

	// Backend down: reads degrade to the database, never to an error.
	cache.err = errors.New("connection refused")

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chair", got.Title)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_MutationsInvalidateCache(t *testing.T) {
	t.Parallel()

	svc, _, cache := newCachedTestService()
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, Input{Title: "Chair"}, nil, origin)
	require.NoError(t, err)

	_, err = svc.Update(ctx, owner, created.ID, Input{Title: "Better chair"}, nil, origin)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, created.ID))

	assert.Equal(t, []uuid.UUID{created.ID, created.ID, created.ID}, cache.invalidations)
}

func TestService_Get_NotStaleAfterUpdate(t *testing.T) {
	t.Parallel()

	svc, _, _ := newCachedTestService()
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, Input{Title: "Chair", Price: 100}, nil, origin)
	require.NoError(t, err)

	// Warm both keys.
	_, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.List(ctx)
	require.NoError(t, err)

	_, err = svc.Update(ctx, owner, created.ID, Input{Title: "Better chair", Price: 200}, nil, origin)
	require.NoError(t, err)

	// The warmed entries were invalidated; reads see the new row.
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Better chair", got.Title)
	assert.Equal(t, int64(200), got.Price)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Better chair", all[0].Title)
}

func TestService_InvalidateFailureDoesNotBlockMutation(t *testing.T) {
	t.Parallel()

	svc, repo, cache := newCachedTestService()
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, Input{Title: "Chair"}, nil, origin)
	require.NoError(t, err)

	// Invalidation failures are logged and swallowed.
	cache.invalidateErr = errors.New("connection refused")

	require.NoError(t, svc.Delete(ctx, owner, created.ID))
	assert.Empty(t, repo.items)
}

func TestService_List(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	ctx := context.Background()

	u1 := uuid.New()
	u2 := uuid.New()

	_, err := svc.Create(ctx, u1, Input{Title: "First"}, nil, origin)
	require.NoError(t, err)
	_, err = svc.Create(ctx, u2, Input{Title: "Second"}, nil, origin)
	require.NoError(t, err)

	// Reads carry no ownership filter.
	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
