package toolbar

import (
	"log/slog"
	"sort"
	"sync"

	"pathref/internal/shared/observability"
)

// Update is what the Sink receives after every accepted event.
type Update struct {
	Project string
	Event   string
	State   State
	Effects []Effect
	Top     Bar
	HasTop  bool
}

// Sink renders toolbar updates.
type Sink interface {
	Render(Update)
}

type SinkFunc func(Update)

func (f SinkFunc) Render(u Update) { f(u) }

// Manager owns the per-project states and the shared bar stack across
// projects. The Sink is called with the manager lock held and must not call
// back into the Manager.
type Manager struct {
	mu       sync.Mutex
	sink     Sink
	projects map[string]ProjectState
	stack    []Bar
}

func NewManager(sink Sink) *Manager {
	return &Manager{
		sink:     sink,
		projects: make(map[string]ProjectState),
	}
}

// Open creates the state of project and shows its default bar. Opening an
// open project re-shows its default bar.
func (m *Manager) Open(project string) {
	m.Dispatch(project, ProjectOpened{})
}

// Close removes every bar of project and releases its state.
func (m *Manager) Close(project string) {
	m.Dispatch(project, ProjectClosed{})
}

// Dispatch feeds ev to the state machine of project. Events for projects
// that are not open are dropped and false is returned.
func (m *Manager) Dispatch(project string, ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ps, ok := m.projects[project]
	if !ok {
		if _, opening := ev.(ProjectOpened); !opening {
			slog.Debug("toolbar event for unknown project dropped", "project", project, "event", ev.Name())
			return false
		}
		ps = NewProjectState(project)
	}

	next, effects := Transition(ps, ev)
	if _, closing := ev.(ProjectClosed); closing {
		delete(m.projects, project)
	} else {
		m.projects[project] = next
	}
	m.applyLocked(effects)

	observability.ToolbarTransitionsTotal.WithLabelValues(next.State().String()).Inc()

	if m.sink != nil {
		top, hasTop := m.topLocked()
		m.sink.Render(Update{
			Project: project,
			Event:   ev.Name(),
			State:   next.State(),
			Effects: effects,
			Top:     top,
			HasTop:  hasTop,
		})
	}
	return true
}

func (m *Manager) applyLocked(effects []Effect) {
	for _, eff := range effects {
		switch eff.Kind {
		case EffectShow:
			m.removeLocked(eff.Bar.Key())
			m.stack = append(m.stack, eff.Bar)
		case EffectElevate:
			if b, ok := m.removeLocked(eff.Bar.Key()); ok {
				m.stack = append(m.stack, b)
			}
		case EffectRemove:
			m.removeLocked(eff.Bar.Key())
		case EffectWarn:
			slog.Warn("toolbar", "project", eff.Bar.Project, "message", eff.Message)
		}
	}
}

func (m *Manager) removeLocked(key string) (Bar, bool) {
	for i, b := range m.stack {
		if b.Key() == key {
			m.stack = append(m.stack[:i], m.stack[i+1:]...)
			return b, true
		}
	}
	return Bar{}, false
}

func (m *Manager) topLocked() (Bar, bool) {
	if len(m.stack) == 0 {
		return Bar{}, false
	}
	return m.stack[len(m.stack)-1], true
}

// Top returns the bar currently shown across all projects.
func (m *Manager) Top() (Bar, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.topLocked()
}

// State returns a copy of the state of project.
func (m *Manager) State(project string) (ProjectState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ps, ok := m.projects[project]
	if !ok {
		return ProjectState{}, false
	}
	return ps.clone(), true
}

func (m *Manager) Projects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.projects))
	for name := range m.projects {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
