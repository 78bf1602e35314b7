package toolbar

import "fmt"

// State is the kind of a toolbar. The state of a project is the kind of the
// bar on top of its stack.
type State int

const (
	Default State = iota
	Debugger
	Search
	Popup
	Dialog
)

func (s State) String() string {
	switch s {
	case Default:
		return "default"
	case Debugger:
		return "debugger"
	case Search:
		return "search"
	case Popup:
		return "popup"
	case Dialog:
		return "dialog"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Temporary reports whether bars of this kind live only while their owner
// (popup or dialog) is shown.
func (s State) Temporary() bool {
	return s == Popup || s == Dialog
}

// Bar is one toolbar instance. Default and Debugger bars are unique per
// project; Search bars are keyed by editor; temporary bars by ID.
type Bar struct {
	Kind    State
	Project string
	Editor  string
	ID      string
	Actions string
}

func (b Bar) Key() string {
	switch b.Kind {
	case Search:
		return b.Project + "/search/" + b.Editor
	case Popup, Dialog:
		return b.Project + "/" + b.Kind.String() + "/" + b.ID
	}
	return b.Project + "/" + b.Kind.String()
}

// EditorState tracks the header and search bar of one registered editor.
type EditorState struct {
	Header  string
	Actions string
	Search  bool
}

// ProjectState is the per-project context the transition function works on.
// Stack holds the project's bars bottom to top.
type ProjectState struct {
	Project       string
	DebugSessions int
	Editors       map[string]EditorState
	Stack         []Bar
}

func NewProjectState(project string) ProjectState {
	return ProjectState{Project: project, Editors: make(map[string]EditorState)}
}

// Top returns the bar on top of the project's stack.
func (ps ProjectState) Top() (Bar, bool) {
	if len(ps.Stack) == 0 {
		return Bar{}, false
	}
	return ps.Stack[len(ps.Stack)-1], true
}

// State is the kind of the top bar, Default when the stack is empty.
func (ps ProjectState) State() State {
	if top, ok := ps.Top(); ok {
		return top.Kind
	}
	return Default
}

func (ps ProjectState) clone() ProjectState {
	out := ps
	out.Stack = append([]Bar(nil), ps.Stack...)
	out.Editors = make(map[string]EditorState, len(ps.Editors))
	for k, v := range ps.Editors {
		out.Editors[k] = v
	}
	return out
}

func (ps *ProjectState) indexOf(key string) int {
	for i, b := range ps.Stack {
		if b.Key() == key {
			return i
		}
	}
	return -1
}

// show moves bar to the top, pushing it when absent.
func (ps *ProjectState) show(bar Bar) {
	if i := ps.indexOf(bar.Key()); i >= 0 {
		ps.Stack = append(ps.Stack[:i], ps.Stack[i+1:]...)
	}
	ps.Stack = append(ps.Stack, bar)
}

// elevate moves bar to the top only when it is already stacked.
func (ps *ProjectState) elevate(bar Bar) bool {
	i := ps.indexOf(bar.Key())
	if i < 0 {
		return false
	}
	if i == len(ps.Stack)-1 {
		return true
	}
	b := ps.Stack[i]
	ps.Stack = append(ps.Stack[:i], ps.Stack[i+1:]...)
	ps.Stack = append(ps.Stack, b)
	return true
}

func (ps *ProjectState) remove(key string) (Bar, bool) {
	i := ps.indexOf(key)
	if i < 0 {
		return Bar{}, false
	}
	b := ps.Stack[i]
	ps.Stack = append(ps.Stack[:i], ps.Stack[i+1:]...)
	return b, true
}
