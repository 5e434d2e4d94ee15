package phonebook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/phonebook/internal/api"
	"github.com/Makepad-fr/phonebook/internal/model"
)

const goodKey = "ABC123"

// fakeAPI records every call as "METHOD path" and serves from entries.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []string
	bodies  []model.Fields
	entries []model.Entry
	newKey  string

	failDelete bool
	failWrite  bool
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func unauthorized(method, path string) error {
	return &api.StatusError{Method: method, Path: path, StatusCode: 401}
}

func (f *fakeAPI) ListEntries(_ context.Context, key string) ([]model.Entry, error) {
	f.record("GET /api/phonebook")
	if key != goodKey {
		return nil, unauthorized("GET", "/api/phonebook")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Entry{}, f.entries...), nil
}

func (f *fakeAPI) GetEntry(_ context.Context, key string, id int64) (model.Entry, error) {
	path := fmt.Sprintf("/api/phonebook/%d", id)
	f.record("GET " + path)
	if key != goodKey {
		return model.Entry{}, unauthorized("GET", path)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Entry{}, &api.StatusError{Method: "GET", Path: path, StatusCode: 404}
}

func (f *fakeAPI) CreateEntry(_ context.Context, key string, fields model.Fields) error {
	f.record("POST /api/phonebook")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, fields)
	if f.failWrite {
		return errors.New("boom")
	}
	f.entries = append(f.entries, model.Entry{
		ID: int64(len(f.entries) + 1), Title: fields.Title, FirstName: fields.FirstName,
		LastName: fields.LastName, PhoneNumber: fields.PhoneNumber,
	})
	return nil
}

func (f *fakeAPI) UpdateEntry(_ context.Context, key string, id int64, fields model.Fields) error {
	f.record(fmt.Sprintf("PUT /api/phonebook/%d", id))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, fields)
	if f.failWrite {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeAPI) DeleteEntry(_ context.Context, key string, id int64) error {
	path := fmt.Sprintf("/api/phonebook/%d", id)
	f.record("DELETE " + path)
	if f.failDelete {
		return &api.StatusError{Method: "DELETE", Path: path, StatusCode: 404}
	}
	return nil
}

func (f *fakeAPI) CreateUser(context.Context) (string, error) {
	f.record("POST /api/user")
	if f.newKey == "" {
		return "", errors.New("no key")
	}
	return f.newKey, nil
}

func sampleEntries(n int) []model.Entry {
	out := make([]model.Entry, n)
	for i := range out {
		out[i] = model.Entry{ID: int64(i + 1), FirstName: fmt.Sprintf("First%d", i+1), PhoneNumber: "01962 00000" + fmt.Sprint(i)}
	}
	return out
}

func TestLoadEntries_ValidKey(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{entries: sampleEntries(3)}
	c := New(fake)

	require.NoError(t, c.Initialize(ctx, goodKey))

	assert.Len(t, c.Entries(), 3)
	s := c.Session()
	assert.True(t, s.Valid)
	assert.False(t, s.LoadAttempted)
	assert.False(t, s.LastAttemptFailed)
	assert.Equal(t, StatusAuthenticated, s.Status())
	assert.Equal(t, []string{"GET /api/phonebook"}, fake.Calls())
}

func TestLoadEntries_InvalidKey(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{entries: sampleEntries(2)}
	c := New(fake)

	assert.Equal(t, StatusUnauthenticated, c.Session().Status())

	err := c.Initialize(ctx, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	s := c.Session()
	assert.False(t, s.Valid)
	assert.False(t, s.LastAttemptFailed, "a bare load never raises LastAttemptFailed")
	assert.Equal(t, StatusInvalid, s.Status())
	assert.Empty(t, c.Entries())

	require.Error(t, c.LoadEntries(ctx))
	assert.False(t, c.Session().LastAttemptFailed)
}

func TestLoadKey_FailedRetry(t *testing.T) {
	ctx := context.Background()
	c := New(&fakeAPI{})

	require.Error(t, c.Initialize(ctx, "nope"))
	require.Error(t, c.LoadKey(ctx))
	require.Error(t, c.LoadKey(ctx))

	s := c.Session()
	assert.True(t, s.LoadAttempted)
	assert.True(t, s.LastAttemptFailed)
	assert.Equal(t, StatusInvalidAfterRetry, s.Status())
}

func TestLoadKey_FirstAttemptFails(t *testing.T) {
	c := New(&fakeAPI{})
	c.SetAuthKey("nope")

	require.Error(t, c.LoadKey(context.Background()))

	s := c.Session()
	assert.True(t, s.LoadAttempted)
	assert.True(t, s.LastAttemptFailed)
}

func TestLoadKey_RecoversWithGoodKey(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{entries: sampleEntries(1)}
	c := New(fake)

	require.Error(t, c.Initialize(ctx, "nope"))
	require.Error(t, c.LoadKey(ctx))
	require.True(t, c.Session().LastAttemptFailed)

	c.SetAuthKey(goodKey)
	require.NoError(t, c.LoadKey(ctx))

	s := c.Session()
	assert.True(t, s.Valid)
	assert.True(t, s.LoadAttempted, "LoadAttempted is never cleared")
	assert.False(t, s.LastAttemptFailed)
	assert.Len(t, c.Entries(), 1)
}

func TestLoadEntries_FailureKeepsList(t *testing.T) {
	ctx := context.Background()
	c := New(&fakeAPI{entries: sampleEntries(2)})

	require.NoError(t, c.Initialize(ctx, goodKey))
	c.SetAuthKey("revoked")
	require.Error(t, c.LoadEntries(ctx))

	assert.False(t, c.Session().Valid)
	assert.Len(t, c.Entries(), 2)
}

func TestCreateKey(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{newKey: goodKey, entries: sampleEntries(2)}
	c := New(fake)
	require.Error(t, c.Initialize(ctx, ""))

	key, err := c.CreateKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, goodKey, key)
	assert.Equal(t, goodKey, c.AuthKey())
	assert.True(t, c.Session().Valid)
	assert.Equal(t, []string{"GET /api/phonebook", "POST /api/user", "GET /api/phonebook"}, fake.Calls())
}

func TestCreateKey_FailureKeepsKey(t *testing.T) {
	c := New(&fakeAPI{})
	c.SetAuthKey("old")

	key, err := c.CreateKey(context.Background())
	require.Error(t, err)
	assert.Empty(t, key)
	assert.Equal(t, "old", c.AuthKey())
}

func TestLoadEntry_NewTarget(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{entries: sampleEntries(2)}
	c := New(fake)
	c.SetAuthKey(goodKey)
	c.UpdateDraft(func(d *model.EntryDraft) { d.FirstName = "leftover" })

	c.SelectEntry(model.NewTarget())
	require.NoError(t, c.LoadEntry(ctx))

	assert.Equal(t, model.EntryDraft{}, c.Draft())
	assert.Empty(t, fake.Calls())
}

func TestLoadEntry_ExistingTarget(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{entries: []model.Entry{{ID: 7, Title: "Dr", FirstName: "Ann", LastName: "Lee", PhoneNumber: "123"}}}
	c := New(fake)
	c.SetAuthKey(goodKey)
	c.UpdateDraft(func(d *model.EntryDraft) { d.LastName = "stale" })

	c.SelectEntry(model.ExistingTarget(7))
	require.NoError(t, c.LoadEntry(ctx))

	assert.Equal(t, []string{"GET /api/phonebook/7"}, fake.Calls())
	assert.Equal(t, model.EntryDraft{ID: 7, Title: "Dr", FirstName: "Ann", LastName: "Lee", PhoneNumber: "123"}, c.Draft())
}

func TestLoadEntry_ErrorKeepsDraft(t *testing.T) {
	c := New(&fakeAPI{})
	c.SetAuthKey(goodKey)
	c.UpdateDraft(func(d *model.EntryDraft) { d.FirstName = "kept" })

	c.SelectEntry(model.ExistingTarget(99))
	err := c.LoadEntry(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, "kept", c.Draft().FirstName)
	assert.False(t, c.Target().IsNew())
}

func TestSubmit_New(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{}
	c := New(fake)
	require.NoError(t, c.Initialize(ctx, goodKey))

	c.UpdateDraft(func(d *model.EntryDraft) {
		d.Title, d.FirstName, d.LastName, d.PhoneNumber = "Mr", "Fred", "Jones", "01962 000000"
	})
	require.NoError(t, c.Submit(ctx))

	assert.Equal(t, []string{"GET /api/phonebook", "POST /api/phonebook", "GET /api/phonebook"}, fake.Calls())
	assert.Equal(t, []model.Fields{{Title: "Mr", FirstName: "Fred", LastName: "Jones", PhoneNumber: "01962 000000"}}, fake.bodies)
	assert.Len(t, c.Entries(), 1)
	assert.True(t, c.Target().IsNew())
	assert.Equal(t, "Fred", c.Draft().FirstName, "draft is not cleared after submit")
}

func TestSubmit_Existing(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{entries: []model.Entry{{ID: 7, FirstName: "Ann"}}}
	c := New(fake)
	c.SetAuthKey(goodKey)

	c.SelectEntry(model.ExistingTarget(7))
	require.NoError(t, c.LoadEntry(ctx))
	c.UpdateDraft(func(d *model.EntryDraft) { d.PhoneNumber = "555" })
	require.NoError(t, c.Submit(ctx))

	assert.Equal(t, []string{"GET /api/phonebook/7", "PUT /api/phonebook/7", "GET /api/phonebook"}, fake.Calls())
	assert.Equal(t, []model.Fields{{FirstName: "Ann", PhoneNumber: "555"}}, fake.bodies)
	id, ok := c.Target().ID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestSubmit_FailureStillReloads(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{failWrite: true}
	c := New(fake)
	c.SetAuthKey(goodKey)

	err := c.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, []string{"POST /api/phonebook", "GET /api/phonebook"}, fake.Calls())
	assert.True(t, c.Session().Valid)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{entries: sampleEntries(2)}
	c := New(fake)
	c.SetAuthKey(goodKey)

	c.SelectEntry(model.ExistingTarget(7))
	require.NoError(t, c.Remove(ctx))
	assert.Equal(t, []string{"DELETE /api/phonebook/7", "GET /api/phonebook"}, fake.Calls())
}

func TestRemove_FailureStillReloads(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{entries: sampleEntries(2), failDelete: true}
	c := New(fake)
	c.SetAuthKey(goodKey)

	c.SelectEntry(model.ExistingTarget(7))
	err := c.Remove(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, []string{"DELETE /api/phonebook/7", "GET /api/phonebook"}, fake.Calls())
	assert.Len(t, c.Entries(), 2)
}

func TestRemove_NewTarget(t *testing.T) {
	fake := &fakeAPI{}
	c := New(fake)

	err := c.Remove(context.Background())
	assert.ErrorIs(t, err, ErrNoEntrySelected)
	assert.Empty(t, fake.Calls())
}

func TestState_Snapshot(t *testing.T) {
	ctx := context.Background()
	c := New(&fakeAPI{entries: sampleEntries(2)})
	require.NoError(t, c.Initialize(ctx, goodKey))
	c.SelectEntry(model.ExistingTarget(2))

	st := c.State()
	st.Entries[0].FirstName = "changed"

	assert.Equal(t, goodKey, st.Session.AuthKey)
	assert.Equal(t, "2", st.Target.String())
	assert.Equal(t, "First1", c.Entries()[0].FirstName)
}

func TestConcurrentOperations(t *testing.T) {
	ctx := context.Background()
	c := New(&fakeAPI{entries: sampleEntries(3)})
	c.SetAuthKey(goodKey)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch i % 4 {
			case 0:
				_ = c.LoadEntries(ctx)
			case 1:
				c.SelectEntry(model.ExistingTarget(1))
				_ = c.LoadEntry(ctx)
			case 2:
				c.UpdateDraft(func(d *model.EntryDraft) { d.Title = "x" })
			default:
				_ = c.State()
			}
		}()
	}
	wg.Wait()

	assert.True(t, c.Session().Valid)
}
