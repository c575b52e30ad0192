package diag

// Reporter is the minimal contract phases use to emit diagnostics.
// Implementations: BagReporter (appends to a Bag), NopReporter.
type Reporter interface {
	Report(code Code, sev Severity, at Location, msg string, notes []Note)
}

// BagReporter routes diagnostics into a Bag.
type BagReporter struct {
	Bag *Bag
}

func (r BagReporter) Report(code Code, sev Severity, at Location, msg string, notes []Note) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{Severity: sev, Code: code, Message: msg, At: at, Notes: notes})
}

// NopReporter discards every diagnostic.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, Location, string, []Note) {}

// ReportBuilder accumulates diagnostic details before emitting.
type ReportBuilder struct {
	reporter Reporter
	diag     Diagnostic
	emitted  bool
}

func NewReportBuilder(r Reporter, sev Severity, code Code, at Location, msg string) *ReportBuilder {
	return &ReportBuilder{
		reporter: r,
		diag: Diagnostic{
			Severity: sev,
			Code:     code,
			Message:  msg,
			At:       at,
		},
	}
}

func ReportError(r Reporter, code Code, at Location, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevError, code, at, msg)
}

func ReportWarning(r Reporter, code Code, at Location, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevWarning, code, at, msg)
}

func ReportInfo(r Reporter, code Code, at Location, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevInfo, code, at, msg)
}

// WithNote appends a note to the diagnostic under construction.
func (b *ReportBuilder) WithNote(at Location, msg string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.diag.Notes = append(b.diag.Notes, Note{At: at, Msg: msg})
	return b
}

// Emit sends the diagnostic to the underlying reporter exactly once.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	if b.reporter != nil {
		b.reporter.Report(b.diag.Code, b.diag.Severity, b.diag.At, b.diag.Message, b.diag.Notes)
	}
	b.emitted = true
}
