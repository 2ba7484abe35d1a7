package logstore

import "errors"

// TimestampLayout is the local, second-precision layout used for Row.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	ErrRowNotFound  = errors.New("log row not found")
	ErrInvalidField = errors.New("field is not updatable")
	ErrCorrupt      = errors.New("log file is corrupt")
)

type Row struct {
	ID           string
	Timestamp    string
	Command      string
	Output       string
	Error        string
	UserNotes    string
	Summary      string
	ErrorSummary string
	NotesSummary string
}

// Field names an annotation column that may be changed after a row exists.
type Field string

const (
	FieldUserNotes    Field = "User_Notes"
	FieldErrorSummary Field = "Error_Summary"
	FieldNotesSummary Field = "Notes_Summary"
)

func (f Field) Valid() bool {
	switch f {
	case FieldUserNotes, FieldErrorSummary, FieldNotesSummary:
		return true
	default:
		return false
	}
}

func (r *Row) set(f Field, value string) {
	switch f {
	case FieldUserNotes:
		r.UserNotes = value
	case FieldErrorSummary:
		r.ErrorSummary = value
	case FieldNotesSummary:
		r.NotesSummary = value
	}
}

// Header is the column order written to disk. The first eight columns match
// logs produced by earlier versions of the tool; ID was added later.
var Header = []string{
	"Timestamp",
	"Command",
	"Output",
	"Error",
	"User_Notes",
	"Summary",
	"Error_Summary",
	"Notes_Summary",
	"ID",
}

func (r Row) record() []string {
	return []string{
		r.Timestamp,
		r.Command,
		r.Output,
		r.Error,
		r.UserNotes,
		r.Summary,
		r.ErrorSummary,
		r.NotesSummary,
		r.ID,
	}
}
