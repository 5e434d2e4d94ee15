package phonebook_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/phonebook/internal/api"
	"github.com/Makepad-fr/phonebook/internal/model"
	"github.com/Makepad-fr/phonebook/internal/phonebook"
	"github.com/Makepad-fr/phonebook/internal/server"
	"github.com/Makepad-fr/phonebook/internal/server/store"
)

func newController(t *testing.T) *phonebook.Controller {
	t.Helper()
	ctx := context.Background()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ts := httptest.NewServer(server.New(st, server.Options{Logger: quiet}).Handler())
	t.Cleanup(ts.Close)

	c, err := api.New(ts.URL, api.WithLogger(quiet))
	require.NoError(t, err)
	return phonebook.New(c, phonebook.WithLogger(quiet))
}

func TestController_AgainstServer(t *testing.T) {
	ctx := context.Background()
	c := newController(t)

	// no key yet
	require.Error(t, c.Initialize(ctx, ""))
	assert.Equal(t, phonebook.StatusInvalid, c.Session().Status())

	key, err := c.CreateKey(ctx)
	require.NoError(t, err)
	assert.Len(t, key, 11)
	assert.Equal(t, phonebook.StatusAuthenticated, c.Session().Status())
	require.Len(t, c.Entries(), 2, "new phonebooks are seeded")

	// create
	c.SelectEntry(model.NewTarget())
	require.NoError(t, c.LoadEntry(ctx))
	c.UpdateDraft(func(d *model.EntryDraft) {
		d.Title, d.FirstName, d.LastName, d.PhoneNumber = "Dr", "Ann", "Lee", "555"
	})
	require.NoError(t, c.Submit(ctx))
	entries := c.Entries()
	require.Len(t, entries, 3)
	added := entries[2]
	assert.Equal(t, "Ann Lee", added.FullName())

	// update
	c.SelectEntry(model.ExistingTarget(added.ID))
	require.NoError(t, c.LoadEntry(ctx))
	assert.Equal(t, added.ID, c.Draft().ID)
	c.UpdateDraft(func(d *model.EntryDraft) { d.PhoneNumber = "556" })
	require.NoError(t, c.Submit(ctx))
	assert.Equal(t, "556", c.Entries()[2].PhoneNumber)

	// remove
	require.NoError(t, c.Remove(ctx))
	assert.Len(t, c.Entries(), 2)

	// removing again fails but the list is still reloaded
	err = c.Remove(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.True(t, c.Session().Valid)
}

func TestController_WrongKeyAgainstServer(t *testing.T) {
	ctx := context.Background()
	c := newController(t)

	err := c.Initialize(ctx, "WRONGKEY000")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	require.Error(t, c.LoadKey(ctx))
	assert.Equal(t, phonebook.StatusInvalidAfterRetry, c.Session().Status())
}
