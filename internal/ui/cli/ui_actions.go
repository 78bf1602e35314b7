package cli

import (
	"pathref/internal/engine/toolbar"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.confirmQuit {
		switch key {
		case "y", "enter":
			m.bar.Dispatch(m.project, toolbar.DialogClosed{ID: dialogQuit})
			return m, tea.Quit
		case "n", "esc", "q":
			m.confirmQuit = false
			m.bar.Dispatch(m.project, toolbar.DialogClosed{ID: dialogQuit})
		}
		return m, nil
	}

	if m.showHelp {
		m.showHelp = false
		m.bar.Dispatch(m.project, toolbar.PopupClosed{ID: popupHelp})
		return m, nil
	}

	// While a filter is being typed every key belongs to the list.
	if m.activeList().FilterState() == list.Filtering {
		return updateActiveList(msg, m)
	}

	switch key {
	case "q":
		m.confirmQuit = true
		m.bar.Dispatch(m.project, toolbar.DialogShown{ID: dialogQuit})
		return m, nil
	case "?":
		m.showHelp = true
		m.bar.Dispatch(m.project, toolbar.PopupShown{ID: popupHelp})
		return m, nil
	case "tab":
		if m.mode == panelModules {
			m.mode = panelReferences
		} else {
			m.mode = panelModules
		}
		m.bar.Dispatch(m.project, toolbar.EditorFocusGained{Editor: m.mode.editor()})
		return m, nil
	case "r":
		if m.scanning || m.svc == nil {
			return m, nil
		}
		m.scanning = true
		m.status = "Rescanning..."
		m.bar.Dispatch(m.project, toolbar.ProcessStarted{Executor: toolbar.ExecutorRun})
		return m, scanCmd(m.svc)
	}

	if m.mode == panelModules {
		switch key {
		case "enter":
			selected, ok := m.moduleList.SelectedItem().(item)
			if !ok || m.svc == nil {
				return m, nil
			}
			return m, rootsCmd(m.svc, selected.module, m.libraries)
		case "l":
			m.libraries = !m.libraries
			if m.roots != nil && m.svc != nil {
				return m, rootsCmd(m.svc, m.roots.Module, m.libraries)
			}
			return m, nil
		case "esc":
			if m.roots != nil || m.rootsErr != "" {
				m.roots = nil
				m.rootsErr = ""
				return m, nil
			}
		}
	}

	return updateActiveList(msg, m)
}

func (m model) activeList() list.Model {
	if m.mode == panelReferences {
		return m.refList
	}
	return m.moduleList
}

// updateActiveList forwards msg to the focused list and keeps the editor
// header, and with it the Search bar, in sync with the list's filter input.
func updateActiveList(msg tea.Msg, m model) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.mode == panelModules {
		m.moduleList, cmd = m.moduleList.Update(msg)
	} else {
		m.refList, cmd = m.refList.Update(msg)
	}
	return syncSearch(m), cmd
}

func syncSearch(m model) model {
	searching := m.activeList().FilterState() == list.Filtering
	if searching == m.searching {
		return m
	}
	m.searching = searching
	header := ""
	if searching {
		header = "filter"
	}
	m.bar.Dispatch(m.project, toolbar.EditorHeaderChanged{
		Editor:  m.mode.editor(),
		Header:  header,
		Actions: searchActions,
	})
	return m
}
