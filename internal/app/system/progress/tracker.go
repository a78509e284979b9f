package progress

import (
	"strings"
	"sync"
)

func trimmed(s string) string { return strings.TrimSpace(s) }

// Tracker keeps auxiliary step data per project for one viewer session.
type Tracker struct {
	mu  sync.Mutex
	aux map[string]*Aux
}

func NewTracker() *Tracker {
	return &Tracker{aux: make(map[string]*Aux)}
}

func (t *Tracker) get(projectID string) *Aux {
	a, ok := t.aux[projectID]
	if !ok {
		a = &Aux{Links: make(map[string]string)}
		t.aux[projectID] = a
	}
	return a
}

// Aux returns a copy of the project's auxiliary data.
func (t *Tracker) Aux(projectID string) Aux {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(projectID).clone()
}

// AttachLink stores link for a link-gated step and returns the progress the
// project should move to. The trimmed link is kept even when progress is
// unchanged.
func (t *Tracker) AttachLink(projectID, key, link string, progress int) (next int, changed bool, err error) {
	step, ok := StepByKey(key)
	if !ok || step.Gate != GateLink {
		return progress, false, ErrUnknownStep
	}

	link = trimmed(link)
	t.mu.Lock()
	t.get(projectID).Links[key] = link
	t.mu.Unlock()

	next, changed = NextForLink(step, link, progress)
	return next, changed, nil
}

// ToggleConfirmation records the campaigns-live flag and returns the
// progress the project should move to.
func (t *Tracker) ToggleConfirmation(projectID string, flag bool, progress int) (next int, changed bool) {
	t.mu.Lock()
	t.get(projectID).Confirmed = flag
	t.mu.Unlock()

	return NextForConfirmation(flag, progress)
}

// Forget drops a project's auxiliary data.
func (t *Tracker) Forget(projectID string) {
	t.mu.Lock()
	delete(t.aux, projectID)
	t.mu.Unlock()
}

// StepView is one step as presented.
type StepView struct {
	Step
	GateKind   string `json:"gate"`
	Link       string `json:"link,omitempty"`
	Completed  bool   `json:"completed"`
	Expandable bool   `json:"expandable"`
}

// View is the derived step panel for one project.
type View struct {
	Progress  int        `json:"progress"`
	Confirmed bool       `json:"campaigns_live"`
	Steps     []StepView `json:"steps"`
	Completed int        `json:"completed"`
	Total     int        `json:"total"`
}

// View builds the step panel for a project at the given progress.
func (t *Tracker) View(projectID string, progress int) View {
	return BuildView(progress, t.Aux(projectID))
}

// BuildView builds the step panel from explicit inputs.
func BuildView(progress int, aux Aux) View {
	list := Steps()
	v := View{
		Progress:  progress,
		Confirmed: aux.Confirmed,
		Steps:     make([]StepView, 0, len(list)),
		Total:     len(list),
	}
	for _, s := range list {
		sv := StepView{
			Step:       s,
			GateKind:   s.Gate.String(),
			Completed:  IsStepCompleted(s, progress, aux),
			Expandable: CanExpand(s, progress),
		}
		if s.Gate == GateLink {
			sv.Link = aux.Link(s.Key)
		}
		v.Steps = append(v.Steps, sv)
	}
	v.Completed = CompletedCount(list, progress, aux)
	return v
}
