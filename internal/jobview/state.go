package jobview

import (
	"fmt"

	"github.com/timmy/hakconsole/internal/domain"
)

// Presentation groups states that share an icon and label style.
type Presentation string

const (
	PresentationSuccess Presentation = "success"
	PresentationPending Presentation = "pending"
	PresentationWarning Presentation = "warning"
	PresentationNeutral Presentation = "neutral"
	PresentationDanger  Presentation = "danger"
)

type style struct {
	glyph string
	color string
	label string
}

var presentationStyles = map[Presentation]style{
	PresentationSuccess: {glyph: "glyphicon-ok-circle", color: "seagreen", label: "label-success"},
	PresentationPending: {glyph: "glyphicon-hourglass", color: "dimgrey", label: "label-info"},
	PresentationWarning: {glyph: "glyphicon-time", color: "lightslategrey", label: "label-warning"},
	PresentationNeutral: {glyph: "glyphicon-ban-circle", color: "lightslategrey", label: "label-default"},
	PresentationDanger:  {glyph: "glyphicon-alert", color: "firebrick", label: "label-danger"},
}

var statePresentations = map[domain.StateKind]Presentation{
	domain.StateCompleted:   PresentationSuccess,
	domain.StatePublished:   PresentationSuccess,
	domain.StateCreated:     PresentationPending,
	domain.StateInQueue:     PresentationPending,
	domain.StateInProgress:  PresentationPending,
	domain.StateUnavailable: PresentationWarning,
	domain.StateCanceled:    PresentationNeutral,
	domain.StateFailed:      PresentationDanger,
}

var stateLabels = map[domain.StateKind]string{
	domain.StateCanceled:    "Canceled",
	domain.StateCompleted:   "Completed",
	domain.StateCreated:     "Created",
	domain.StateInProgress:  "In Progress",
	domain.StateInQueue:     "In Queue",
	domain.StatePublished:   "Published",
	domain.StateUnavailable: "Unavailable",
	domain.StateFailed:      "Failed",
}

// PresentationOf returns the presentation class of state. ok is false for
// states outside the known set.
func PresentationOf(state domain.StateKind) (p Presentation, ok bool) {
	p, ok = statePresentations[state]
	return p, ok
}

// PrettyState returns the display label of state, or "" when unknown.
func PrettyState(state domain.StateKind) string {
	if label, ok := stateLabels[state]; ok {
		return label
	}
	return ""
}

// SuccessIcon returns the glyph markup for state, or "" when unknown.
func SuccessIcon(state domain.StateKind) string {
	p, ok := PresentationOf(state)
	if !ok {
		return ""
	}
	s := presentationStyles[p]
	return fmt.Sprintf(`<span class="glyphicon %s" style="color:%s" aria-hidden="true"></span>`, s.glyph, s.color)
}

// SuccessLabel returns the label markup for state, or "" when unknown.
func SuccessLabel(state domain.StateKind) string {
	p, ok := PresentationOf(state)
	if !ok {
		return ""
	}
	return fmt.Sprintf(`<span class="label %s">%s</span>`, presentationStyles[p].label, PrettyState(state))
}
