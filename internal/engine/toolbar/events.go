package toolbar

// Tool window and executor identifiers that involve the debugger bar.
const (
	ToolWindowDebug        = "Debug"
	ToolWindowRunDashboard = "RunDashboard"
	ExecutorDebug          = "Debug"
	ExecutorRun            = "Run"
)

// Event is an input of the state machine.
type Event interface {
	Name() string
}

type ProjectOpened struct{}

type ProjectClosed struct{}

type ToolWindowActivated struct{ ID string }

type ProcessStarted struct{ Executor string }

// ProcessTerminated reports a finished process. OtherActive is true when
// another process of the project is still running.
type ProcessTerminated struct {
	Executor    string
	OtherActive bool
}

type DebugSessionStarted struct{}

type DebugSessionStopped struct{}

type EditorRegistered struct{ Editor string }

type EditorReleased struct{ Editor string }

type EditorFocusGained struct{ Editor string }

// EditorHeaderChanged carries the new header of an editor. An empty Header
// means the header was removed.
type EditorHeaderChanged struct {
	Editor  string
	Header  string
	Actions string
}

type PopupShown struct{ ID string }

type PopupClosed struct{ ID string }

type DialogShown struct{ ID string }

type DialogClosed struct{ ID string }

func (ProjectOpened) Name() string       { return "project_opened" }
func (ProjectClosed) Name() string       { return "project_closed" }
func (ToolWindowActivated) Name() string { return "tool_window_activated" }
func (ProcessStarted) Name() string      { return "process_started" }
func (ProcessTerminated) Name() string   { return "process_terminated" }
func (DebugSessionStarted) Name() string { return "debug_session_started" }
func (DebugSessionStopped) Name() string { return "debug_session_stopped" }
func (EditorRegistered) Name() string    { return "editor_registered" }
func (EditorReleased) Name() string      { return "editor_released" }
func (EditorFocusGained) Name() string   { return "editor_focus_gained" }
func (EditorHeaderChanged) Name() string { return "editor_header_changed" }
func (PopupShown) Name() string          { return "popup_shown" }
func (PopupClosed) Name() string         { return "popup_closed" }
func (DialogShown) Name() string         { return "dialog_shown" }
func (DialogClosed) Name() string        { return "dialog_closed" }

type EffectKind int

const (
	EffectShow EffectKind = iota
	EffectElevate
	EffectRemove
	EffectRefreshTop
	EffectWarn
)

func (k EffectKind) String() string {
	switch k {
	case EffectShow:
		return "show"
	case EffectElevate:
		return "elevate"
	case EffectRemove:
		return "remove"
	case EffectRefreshTop:
		return "refresh_top"
	case EffectWarn:
		return "warn"
	}
	return "unknown"
}

// Effect is an output of the state machine for the host to apply.
type Effect struct {
	Kind    EffectKind
	Bar     Bar
	Message string
}
