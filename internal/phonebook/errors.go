package phonebook

import "errors"

// ErrNoEntrySelected is returned by Remove when the target is New.
var ErrNoEntrySelected = errors.New("no entry selected")
