package model

import "strconv"

// Entry is a phonebook record as the API returns it.
type Entry struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

// FullName joins first and last name, skipping empty parts.
func (e Entry) FullName() string {
	switch {
	case e.FirstName == "":
		return e.LastName
	case e.LastName == "":
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// Fields is the request body of create and update calls.
type Fields struct {
	Title       string `json:"title"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

// EntryDraft is the entry currently viewed or edited on the client.
// An ID of 0 means the draft has never been stored.
type EntryDraft Entry

// Fields returns the four editable fields of the draft.
func (d EntryDraft) Fields() Fields {
	return Fields{
		Title:       d.Title,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		PhoneNumber: d.PhoneNumber,
	}
}

// Empty reports whether all editable fields are blank.
func (d EntryDraft) Empty() bool {
	return d.Fields() == Fields{}
}

// Target says which entry the next load, submit or remove applies to.
// The zero value is the New target.
type Target struct {
	id int64
}

func NewTarget() Target { return Target{} }

// ExistingTarget selects a stored entry. ids <= 0 are treated as New.
func ExistingTarget(id int64) Target {
	if id <= 0 {
		return Target{}
	}
	return Target{id: id}
}

// ID returns the selected entry id and whether one is selected.
func (t Target) ID() (int64, bool) { return t.id, t.id > 0 }

func (t Target) IsNew() bool { return t.id <= 0 }

func (t Target) String() string {
	if t.IsNew() {
		return "new"
	}
	return strconv.FormatInt(t.id, 10)
}
