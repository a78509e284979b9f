// Package progress derives the onboarding step view of a project from its
// persisted progress percentage and the session-local auxiliary step data
// (attached links and the campaigns-live confirmation).
//
// Nothing here touches the store. Callers persist the progress values the
// engine computes.
package progress

import "errors"

var (
	// ErrUnknownStep is returned for a step key that is not in the sequence.
	ErrUnknownStep = errors.New("unknown progress step")
	// ErrInvalidLink is returned for a step link that is not an http(s) URL.
	ErrInvalidLink = errors.New("step link must be an http or https URL")
)

// Gate is the kind of predicate that completes a step.
type Gate int

const (
	// GateLink steps complete once a non-empty link is attached.
	GateLink Gate = iota
	// GateConfirmation steps complete once the confirmation flag is set.
	GateConfirmation
)

func (g Gate) String() string {
	if g == GateConfirmation {
		return "confirmation"
	}
	return "link"
}

// Step keys.
const (
	KeyOnboarding    = "onboarding"
	KeyMailboxes     = "mailboxes"
	KeyTemplates     = "templates"
	KeySampleList    = "sample_list"
	KeyCampaignsLive = "campaigns_live"
)

// Step is one fixed milestone in the onboarding sequence.
type Step struct {
	Key       string `json:"key"`
	Threshold int    `json:"threshold"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle,omitempty"`
	Gate      Gate   `json:"-"`
}

var steps = []Step{
	{Key: KeyOnboarding, Threshold: 20, Title: "Onboarding document filled", Gate: GateLink},
	{Key: KeyMailboxes, Threshold: 40, Title: "Mailboxes are warming up", Gate: GateLink},
	{Key: KeyTemplates, Threshold: 60, Title: "Email templates are created", Subtitle: "(option for the client to approve)", Gate: GateLink},
	{Key: KeySampleList, Threshold: 80, Title: "Sample list created", Gate: GateLink},
	{Key: KeyCampaignsLive, Threshold: 100, Title: "Campaigns are live", Gate: GateConfirmation},
}

// RollbackTarget is where un-confirming campaigns-live puts progress.
const RollbackTarget = 80

// Steps returns the step sequence in order.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// StepByKey looks up a step.
func StepByKey(key string) (Step, bool) {
	for _, s := range steps {
		if s.Key == key {
			return s, true
		}
	}
	return Step{}, false
}

// Aux is the session-local data that gates step completion. It is never
// persisted.
type Aux struct {
	Links     map[string]string
	Confirmed bool
}

// Link returns the link attached to key, or "".
func (a Aux) Link(key string) string {
	if a.Links == nil {
		return ""
	}
	return a.Links[key]
}

func (a Aux) clone() Aux {
	out := Aux{Confirmed: a.Confirmed, Links: make(map[string]string, len(a.Links))}
	for k, v := range a.Links {
		out.Links[k] = v
	}
	return out
}

// IsStepCompleted reports whether step's own predicate holds and progress
// has reached its threshold. A link-gated step with no link (or only
// whitespace) is never complete, whatever the progress.
func IsStepCompleted(step Step, progress int, aux Aux) bool {
	if progress < step.Threshold {
		return false
	}
	switch step.Gate {
	case GateConfirmation:
		return aux.Confirmed
	default:
		return trimmed(aux.Link(step.Key)) != ""
	}
}

// CompletedCount counts completed steps. Display only.
func CompletedCount(list []Step, progress int, aux Aux) int {
	n := 0
	for _, s := range list {
		if IsStepCompleted(s, progress, aux) {
			n++
		}
	}
	return n
}

// CanExpand reports whether the step's detail can be opened. The
// confirmation step opens only once the step before it has been reached.
func CanExpand(step Step, progress int) bool {
	if step.Gate != GateConfirmation {
		return true
	}
	return progress >= RollbackTarget
}

// NextForLink returns the progress after attaching link to step. Progress
// moves to exactly the step threshold when the trimmed link is non-empty
// and progress is below it. It never decreases.
func NextForLink(step Step, link string, progress int) (int, bool) {
	if trimmed(link) == "" || progress >= step.Threshold {
		return progress, false
	}
	return step.Threshold, true
}

// NextForConfirmation returns the progress after setting the confirmation
// flag. Setting it below 100 jumps to 100; clearing it at exactly 100 drops
// to RollbackTarget regardless of the other steps.
func NextForConfirmation(flag bool, progress int) (int, bool) {
	switch {
	case flag && progress < 100:
		return 100, true
	case !flag && progress == 100:
		return RollbackTarget, true
	}
	return progress, false
}
