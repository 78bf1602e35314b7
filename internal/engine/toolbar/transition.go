package toolbar

import "fmt"

// Transition applies ev to ps and returns the new state with the effects the
// host must apply. ps is not modified.
func Transition(ps ProjectState, ev Event) (ProjectState, []Effect) {
	next := ps.clone()
	var effects []Effect

	show := func(bar Bar) {
		next.show(bar)
		effects = append(effects, Effect{Kind: EffectShow, Bar: bar})
	}
	remove := func(key string) {
		if bar, ok := next.remove(key); ok {
			effects = append(effects, Effect{Kind: EffectRemove, Bar: bar})
		}
	}
	warn := func(format string, args ...any) {
		effects = append(effects, Effect{Kind: EffectWarn, Message: fmt.Sprintf(format, args...)})
	}

	defaultBar := Bar{Kind: Default, Project: ps.Project}
	debuggerBar := Bar{Kind: Debugger, Project: ps.Project}

	switch e := ev.(type) {
	case ProjectOpened:
		show(defaultBar)

	case ProjectClosed:
		for i := len(next.Stack) - 1; i >= 0; i-- {
			effects = append(effects, Effect{Kind: EffectRemove, Bar: next.Stack[i]})
		}
		next = NewProjectState(ps.Project)

	case ToolWindowActivated:
		if (e.ID == ToolWindowDebug || e.ID == ToolWindowRunDashboard) && next.DebugSessions > 0 {
			show(debuggerBar)
		}

	case ProcessStarted:
		effects = append(effects, Effect{Kind: EffectRefreshTop})

	case ProcessTerminated:
		top, ok := next.Top()
		isDebugExecutor := e.Executor == ToolWindowDebug || e.Executor == ToolWindowRunDashboard
		if ok && top.Kind == Debugger && isDebugExecutor && (!e.OtherActive || next.DebugSessions <= 0) {
			remove(top.Key())
		}
		effects = append(effects, Effect{Kind: EffectRefreshTop})

	case DebugSessionStarted:
		next.DebugSessions++

	case DebugSessionStopped:
		if next.DebugSessions > 0 {
			next.DebugSessions--
		}

	case EditorRegistered:
		if _, ok := next.Editors[e.Editor]; !ok {
			next.Editors[e.Editor] = EditorState{}
		}

	case EditorReleased:
		ed, ok := next.Editors[e.Editor]
		if !ok {
			break
		}
		if ed.Search {
			remove(Bar{Kind: Search, Project: ps.Project, Editor: e.Editor}.Key())
		}
		delete(next.Editors, e.Editor)

	case EditorFocusGained:
		if next.DebugSessions <= 0 && next.elevate(defaultBar) {
			effects = append(effects, Effect{Kind: EffectElevate, Bar: defaultBar})
		}

	case EditorHeaderChanged:
		ed, ok := next.Editors[e.Editor]
		if !ok {
			warn("can't find editor data for editor %q", e.Editor)
			break
		}
		searchBar := Bar{Kind: Search, Project: ps.Project, Editor: e.Editor, Actions: e.Actions}
		if e.Header == "" {
			ed.Header = ""
			if ed.Search {
				remove(searchBar.Key())
				ed.Search = false
			}
		} else {
			ed.Header = e.Header
			if !ed.Search || ed.Actions != e.Actions {
				if ed.Search {
					remove(searchBar.Key())
				}
				ed.Actions = e.Actions
				ed.Search = true
				show(searchBar)
			}
		}
		next.Editors[e.Editor] = ed

	case PopupShown:
		show(Bar{Kind: Popup, Project: ps.Project, ID: e.ID})

	case PopupClosed:
		remove(Bar{Kind: Popup, Project: ps.Project, ID: e.ID}.Key())

	case DialogShown:
		show(Bar{Kind: Dialog, Project: ps.Project, ID: e.ID})

	case DialogClosed:
		remove(Bar{Kind: Dialog, Project: ps.Project, ID: e.ID}.Key())

	default:
		warn("unhandled event %T", ev)
	}

	return next, effects
}
