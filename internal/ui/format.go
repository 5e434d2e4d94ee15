package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/valyala/fasttemplate"

	"github.com/Makepad-fr/phonebook/internal/model"
)

// DefaultEntryFormat is used by `ls` when no --format is given.
const DefaultEntryFormat = "{{id}}\t{{title}} {{firstName}} {{lastName}}\t{{phoneNumber}}"

// EntryFormatter renders entries through a {{placeholder}} template.
// Known placeholders: id, title, firstName, lastName, fullName, phoneNumber.
// Unknown placeholders render empty.
type EntryFormatter struct {
	tmpl *fasttemplate.Template
}

func NewEntryFormatter(format string) (*EntryFormatter, error) {
	if format == "" {
		format = DefaultEntryFormat
	}
	t, err := fasttemplate.NewTemplate(format, "{{", "}}")
	if err != nil {
		return nil, fmt.Errorf("parse format %q: %w", format, err)
	}
	return &EntryFormatter{tmpl: t}, nil
}

func (f *EntryFormatter) Format(e model.Entry) string {
	return f.tmpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		return io.WriteString(w, entryField(e, tag))
	})
}

func entryField(e model.Entry, tag string) string {
	switch tag {
	case "id":
		return strconv.FormatInt(e.ID, 10)
	case "title":
		return e.Title
	case "firstName":
		return e.FirstName
	case "lastName":
		return e.LastName
	case "fullName":
		return e.FullName()
	case "phoneNumber":
		return e.PhoneNumber
	}
	return ""
}

// EntryPanel prints one entry in a framed box.
func EntryPanel(e model.Entry) {
	t := Current()
	Panel([]string{
		C(t.Title, t.SymEntry+" "+e.FullName()),
		C(t.Muted, "id      ") + strconv.FormatInt(e.ID, 10),
		C(t.Muted, "title   ") + e.Title,
		C(t.Muted, "first   ") + e.FirstName,
		C(t.Muted, "last    ") + e.LastName,
		C(t.Muted, "phone   ") + C(t.Accent, e.PhoneNumber),
	})
}

// EntryTable prints the whole list in a box, or a muted notice when empty.
func EntryTable(entries []model.Entry) {
	t := Current()
	if len(entries) == 0 {
		Panel([]string{C(t.Muted, "No entries")})
		return
	}
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, C(t.Title, fmt.Sprintf("Phonebook  %d entries", len(entries))))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s %s  %s  %s",
			C(t.Muted, fmt.Sprintf("%4d", e.ID)),
			t.SymEntry,
			e.FullName(),
			C(t.Accent, t.SymPhone+" "+e.PhoneNumber)))
	}
	Panel(lines)
}
