package diag

// Note attaches supplementary context to a diagnostic.
type Note struct {
	At  Location
	Msg string
}

// Diagnostic is a single compile-time problem report.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	At       Location
	Notes    []Note
}

// WithNote returns a copy of d with an additional note appended.
func (d Diagnostic) WithNote(at Location, msg string) Diagnostic {
	d.Notes = append(append([]Note(nil), d.Notes...), Note{At: at, Msg: msg})
	return d
}
