package jobview

import (
	"fmt"
	"time"

	"github.com/timmy/hakconsole/internal/domain"
	"github.com/timmy/hakconsole/internal/registry"
)

// InvalidPlugin is shown when a job references a plugin class the backend
// no longer reports.
const InvalidPlugin = "INVALID"

// Row is a job record shaped for display. Absent derived values are "".
type Row struct {
	UUID          string           `json:"uuid"`
	Name          string           `json:"name"`
	Provider      *string          `json:"provider"`
	Publisher     *string          `json:"publisher"`
	State         domain.StateKind `json:"state"`
	ProviderName  string           `json:"providerName,omitempty"`
	PublisherName string           `json:"publisherName,omitempty"`
	Created       string           `json:"created,omitempty"`
	Started       string           `json:"started,omitempty"`
	Completed     string           `json:"completed,omitempty"`
	Duration      string           `json:"duration,omitempty"`
	SuccessIcon   string           `json:"successIcon,omitempty"`
	ConsoleIcon   string           `json:"consoleIcon,omitempty"`
	SuccessLabel  string           `json:"successLabel,omitempty"`
	StateLabel    string           `json:"stateLabel,omitempty"`

	// Job is the record the row was derived from.
	Job domain.JobRecord `json:"-"`
}

// HasConsole reports whether the row links to a provider console.
func (r Row) HasConsole() bool {
	return r.ConsoleIcon != ""
}

// Formatter shapes job records for a viewer in a given time zone.
type Formatter struct {
	loc *time.Location
}

// NewFormatter creates a formatter rendering timestamps in loc.
// Parameters:
//   - loc: display time zone; nil means time.Local.
//
// Returns:
//   - *Formatter: formatter for that zone.
func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{loc: loc}
}

// Location returns the time zone used for timestamps.
func (f *Formatter) Location() *time.Location {
	return f.loc
}

// Enrich shapes every record against reg, preserving order. It never
// modifies reg or the input slice.
func (f *Formatter) Enrich(jobs []domain.JobRecord, reg *registry.Registry) []Row {
	rows := make([]Row, len(jobs))
	for i, job := range jobs {
		rows[i] = f.EnrichOne(job, reg)
	}
	return rows
}

// EnrichOne shapes a single record against reg.
func (f *Formatter) EnrichOne(job domain.JobRecord, reg *registry.Registry) Row {
	return Row{
		UUID:          job.UUID,
		Name:          job.Name,
		Provider:      job.Provider,
		Publisher:     job.Publisher,
		State:         job.State,
		ProviderName:  ResolveName(reg, domain.PluginProvider, job.Provider),
		PublisherName: ResolveName(reg, domain.PluginPublisher, job.Publisher),
		Created:       FormatTimestamp(job.Created, f.loc),
		Started:       FormatTimestamp(job.Started, f.loc),
		Completed:     FormatTimestamp(job.Completed, f.loc),
		Duration:      ComputeDuration(job.Created, job.Completed),
		SuccessIcon:   SuccessIcon(job.State),
		ConsoleIcon:   ConsoleIcon(reg, job.ProviderClass(), job.UUID),
		SuccessLabel:  SuccessLabel(job.State),
		StateLabel:    PrettyState(job.State),
		Job:           job,
	}
}

// ResolveName returns the plugin name for class, InvalidPlugin when the
// class is unknown, and "" when class is nil.
func ResolveName(reg *registry.Registry, kind domain.PluginKind, class *string) string {
	if class == nil {
		return ""
	}
	if p, ok := reg.Lookup(kind, *class); ok {
		return p.Name
	}
	return InvalidPlugin
}

// ConsolePath returns the path of the console view for a job. It is
// absolute because the jobs table is also rendered below /jobs/.
func ConsolePath(jobID string) string {
	return "/console/" + jobID
}

// ConsoleIcon returns a link to the job's console when its provider has
// one, and "" otherwise.
func ConsoleIcon(reg *registry.Registry, providerClass, jobID string) string {
	if !reg.HasConsole(domain.PluginProvider, providerClass) {
		return ""
	}
	return fmt.Sprintf(`<a href="%s" title="View Console"><span class="glyphicon glyphicon-console" style="color:blue" aria-hidden="true"></span></a>`,
		ConsolePath(EscapeHTML(jobID)))
}
