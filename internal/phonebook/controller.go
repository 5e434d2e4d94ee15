// Package phonebook keeps a client-side view of a remote phonebook in sync
// with the server.
//
// A Controller owns the session (auth key and validity flags), the entry list
// and one draft entry being viewed or edited. Network calls are made without
// holding the state lock, so several operations may be in flight at once; the
// response that lands last decides the final state.
package phonebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Makepad-fr/phonebook/internal/model"
)

// API is the subset of the REST client the controller needs.
type API interface {
	ListEntries(ctx context.Context, key string) ([]model.Entry, error)
	GetEntry(ctx context.Context, key string, id int64) (model.Entry, error)
	CreateEntry(ctx context.Context, key string, f model.Fields) error
	UpdateEntry(ctx context.Context, key string, id int64, f model.Fields) error
	DeleteEntry(ctx context.Context, key string, id int64) error
	CreateUser(ctx context.Context) (string, error)
}

// State is a copy of everything the controller holds, for rendering.
type State struct {
	Session Session
	Target  model.Target
	Draft   model.EntryDraft
	Entries []model.Entry
}

type Controller struct {
	api API
	log *slog.Logger

	mu      sync.Mutex
	session Session
	target  model.Target
	draft   model.EntryDraft
	entries []model.Entry
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api: api,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize adopts key, starts from an empty draft and fetches the list once.
func (c *Controller) Initialize(ctx context.Context, key string) error {
	c.mu.Lock()
	c.session.AuthKey = key
	c.target = model.NewTarget()
	c.draft = model.EntryDraft{}
	c.mu.Unlock()

	return c.LoadEntries(ctx)
}

// LoadEntries fetches the entry list with the current key. On success the list
// is replaced and the session marked valid. On failure the session is marked
// invalid and the list is left alone; LastAttemptFailed is only raised once a
// load was requested through LoadKey.
func (c *Controller) LoadEntries(ctx context.Context) error {
	key := c.AuthKey()

	entries, err := c.api.ListEntries(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.session.Valid = false
		c.session.fetched = true
		if c.session.LoadAttempted {
			c.session.LastAttemptFailed = true
		}
		c.log.Debug("list fetch failed", "retry", c.session.LoadAttempted, "err", err)
		return fmt.Errorf("load entries: %w", err)
	}
	c.session.Valid = true
	c.session.fetched = true
	c.session.LastAttemptFailed = false
	c.entries = entries
	c.log.Debug("list fetched", "entries", len(entries))
	return nil
}

// LoadKey records an explicit load attempt and fetches the list.
func (c *Controller) LoadKey(ctx context.Context) error {
	c.mu.Lock()
	c.session.LoadAttempted = true
	c.mu.Unlock()

	return c.LoadEntries(ctx)
}

// SetAuthKey replaces the key used by subsequent requests.
func (c *Controller) SetAuthKey(key string) {
	c.mu.Lock()
	c.session.AuthKey = key
	c.mu.Unlock()
}

func (c *Controller) AuthKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.AuthKey
}

// CreateKey asks the server for a new key, adopts it and reloads the list.
// A failure leaves the current key in place.
func (c *Controller) CreateKey(ctx context.Context) (string, error) {
	key, err := c.api.CreateUser(ctx)
	if err != nil {
		return "", fmt.Errorf("create key: %w", err)
	}
	c.SetAuthKey(key)
	c.log.Info("created key")
	return key, c.LoadEntries(ctx)
}

// SelectEntry sets the target of the next LoadEntry, Submit or Remove.
func (c *Controller) SelectEntry(t model.Target) {
	c.mu.Lock()
	c.target = t
	c.mu.Unlock()
}

func (c *Controller) Target() model.Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// LoadEntry fills the draft for the current target. A New target resets the
// draft without any request. An existing target replaces the whole draft with
// the server copy; on error the draft is kept as it was.
func (c *Controller) LoadEntry(ctx context.Context) error {
	c.mu.Lock()
	target, key := c.target, c.session.AuthKey
	id, existing := target.ID()
	if !existing {
		c.draft = model.EntryDraft{}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	e, err := c.api.GetEntry(ctx, key, id)
	if err != nil {
		return fmt.Errorf("load entry %d: %w", id, err)
	}
	if e.ID == 0 {
		e.ID = id
	}

	c.mu.Lock()
	c.draft = model.EntryDraft(e)
	c.mu.Unlock()
	return nil
}

// UpdateDraft edits the draft in place.
func (c *Controller) UpdateDraft(fn func(*model.EntryDraft)) {
	c.mu.Lock()
	fn(&c.draft)
	c.mu.Unlock()
}

func (c *Controller) Draft() model.EntryDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Remove deletes the target entry and then reloads the list, whether or not
// the delete succeeded.
func (c *Controller) Remove(ctx context.Context) error {
	c.mu.Lock()
	id, existing := c.target.ID()
	key := c.session.AuthKey
	c.mu.Unlock()
	if !existing {
		return ErrNoEntrySelected
	}

	var errs []error
	if err := c.api.DeleteEntry(ctx, key, id); err != nil {
		c.log.Warn("delete failed", "id", id, "err", err)
		errs = append(errs, fmt.Errorf("delete entry %d: %w", id, err))
	}
	if err := c.LoadEntries(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Submit creates the draft (New target) or updates the target entry, then
// reloads the list. Draft and target are left untouched.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	id, existing := c.target.ID()
	fields := c.draft.Fields()
	key := c.session.AuthKey
	c.mu.Unlock()

	var err error
	if existing {
		if err = c.api.UpdateEntry(ctx, key, id, fields); err != nil {
			err = fmt.Errorf("update entry %d: %w", id, err)
		}
	} else {
		if err = c.api.CreateEntry(ctx, key, fields); err != nil {
			err = fmt.Errorf("create entry: %w", err)
		}
	}
	if err != nil {
		c.log.Warn("submit failed", "target", id, "err", err)
	}
	return errors.Join(err, c.LoadEntries(ctx))
}

// Entries returns a copy of the last fetched list.
func (c *Controller) Entries() []model.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Entry(nil), c.entries...)
}

func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// State returns a consistent snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Session: c.session,
		Target:  c.target,
		Draft:   c.draft,
		Entries: append([]model.Entry(nil), c.entries...),
	}
}
