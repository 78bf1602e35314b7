package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pathref/internal/core/ports"
	"pathref/internal/engine/provider"
	"pathref/internal/engine/toolbar"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	unresolvedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	staleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	keyBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E2E8F0")).
			Background(lipgloss.Color("#1E293B")).
			Padding(0, 1)

	barStateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0F172A")).
			Background(lipgloss.Color("#38BDF8")).
			Bold(true).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)
)

const (
	editorModules    = "modules"
	editorReferences = "references"

	popupHelp  = "help"
	dialogQuit = "quit"

	searchActions = "enter apply · esc cancel"
)

type item struct {
	title, desc string
	module      string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type panelMode int

const (
	panelModules panelMode = iota
	panelReferences
)

func (p panelMode) editor() string {
	if p == panelReferences {
		return editorReferences
	}
	return editorModules
}

type model struct {
	moduleList list.Model
	refList    list.Model
	mode       panelMode

	svc     ports.ReferenceService
	bar     *toolbar.Manager
	project string

	result      ports.ScanResult
	moduleCount int
	lastUpdate  time.Time

	libraries bool
	roots     *ports.RootsResult
	rootsErr  string

	searching   bool
	showHelp    bool
	confirmQuit bool
	scanning    bool
	status      string
}

type updateMsg struct {
	snapshot ports.Snapshot
	modules  []ports.ModuleSummary
}

type rootsMsg struct {
	result ports.RootsResult
	err    error
}

type scanDoneMsg struct {
	result ports.ScanResult
	err    error
}

type statusMsg string

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 10
		if height < 5 {
			height = 5
		}
		m.moduleList.SetSize(width, height)
		m.refList.SetSize(width, height)
		return m, nil
	case updateMsg:
		m = applyUpdate(m, msg)
		if m.roots != nil {
			return m, rootsCmd(m.svc, m.roots.Module, m.libraries)
		}
		return m, nil
	case rootsMsg:
		if msg.err != nil {
			m.roots = nil
			m.rootsErr = msg.err.Error()
		} else {
			res := msg.result
			m.roots = &res
			m.rootsErr = ""
		}
		return m, nil
	case scanDoneMsg:
		m.scanning = false
		m.bar.Dispatch(m.project, toolbar.ProcessTerminated{Executor: toolbar.ExecutorRun})
		if msg.err != nil {
			m.status = fmt.Sprintf("Rescan failed: %v", msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("Rescan finished in %s", msg.result.Duration.Round(time.Millisecond))
		return m, refreshCmd(m.svc)
	case statusMsg:
		m.status = string(msg)
		return m, nil
	}

	var cmd tea.Cmd
	if m.mode == panelModules {
		m.moduleList, cmd = m.moduleList.Update(msg)
	} else {
		m.refList, cmd = m.refList.Update(msg)
	}
	return m, cmd
}

func applyUpdate(m model, msg updateMsg) model {
	m.result = msg.snapshot.Result
	m.moduleCount = len(msg.modules)
	m.lastUpdate = time.Now()

	moduleItems := make([]list.Item, 0, len(msg.modules))
	for _, mod := range msg.modules {
		desc := fmt.Sprintf("sources=%d libraries=%d", len(mod.SourceRoots), len(mod.LibraryRoots))
		if len(mod.Dependencies) > 0 {
			desc += " deps=" + strings.Join(mod.Dependencies, ",")
		}
		moduleItems = append(moduleItems, item{title: mod.Name, desc: desc, module: mod.Name})
	}
	m.moduleList.SetItems(moduleItems)

	refItems := []list.Item{}
	for _, file := range msg.snapshot.Files {
		name := filepath.Base(file.Path)
		for _, lr := range file.Sets {
			refItems = append(refItems, item{
				title:  fmt.Sprintf("%s:%d %q", name, lr.Literal.Location.Line, lr.Literal.Text),
				desc:   describeSet(lr.Set.Resolved(), lr.Set.Soft, lastTarget(lr)),
				module: file.Module,
			})
		}
	}
	m.refList.SetItems(refItems)
	return m
}

func lastTarget(lr provider.LiteralReferences) string {
	targets := lr.Set.LastTargets()
	if len(targets) == 0 {
		return ""
	}
	return targets[0].Location()
}

func describeSet(resolved, soft bool, target string) string {
	switch {
	case resolved && target != "":
		return "→ " + target
	case resolved:
		return "resolved"
	case soft:
		return "unresolved (soft)"
	}
	return "unresolved"
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d modules",
		m.lastUpdate.Format("15:04:05"), m.result.FilesScanned, m.moduleCount))

	var summary string
	if m.result.Unresolved == 0 && len(m.result.StaleRoots) == 0 {
		summary = successStyle.Render("All references resolve")
	} else {
		summary = fmt.Sprintf("%s | %s",
			unresolvedStyle.Render(fmt.Sprintf("%d unresolved", m.result.Unresolved)),
			staleStyle.Render(fmt.Sprintf("%d stale roots", len(m.result.StaleRoots))))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Path Reference Monitor"), status, summary)

	var body string
	switch {
	case m.confirmQuit:
		body = boxStyle.Render("Quit pathref? (y/n)")
	case m.showHelp:
		body = renderHelp()
	case m.mode == panelModules:
		body = m.moduleList.View()
		if panel := renderRootsPanel(m); panel != "" {
			body += "\n\n" + panel
		}
	default:
		body = m.refList.View()
	}
	if m.status != "" {
		body += "\n\n" + statusStyle.Render(m.status)
	}

	return docStyle.Render(header + "\n" + body + "\n\n" + renderKeyBar(m.bar))
}

func renderRootsPanel(m model) string {
	if m.rootsErr != "" {
		return unresolvedStyle.Render("Roots: " + m.rootsErr)
	}
	if m.roots == nil {
		return ""
	}
	var b strings.Builder
	libs := "off"
	if m.libraries {
		libs = "on"
	}
	fmt.Fprintf(&b, "Roots of %s (libraries %s, %d modules scanned)\n", m.roots.Module, libs, m.roots.Stats.ScannedModules)
	for i, root := range m.roots.Roots {
		fmt.Fprintf(&b, "%3d. %s%s\n", i+1, root.Path(), rootLabel(root.Library, root.Prefix))
	}
	for _, s := range m.roots.Stats.Stale {
		b.WriteString(staleStyle.Render(fmt.Sprintf("  stale %s root of %s: %s", s.Kind, s.Module, s.ID)))
		b.WriteString("\n")
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func rootLabel(library bool, prefix string) string {
	var tags []string
	if library {
		tags = append(tags, "library")
	}
	if prefix != "" {
		tags = append(tags, "package "+prefix)
	}
	if len(tags) == 0 {
		return ""
	}
	return "  [" + strings.Join(tags, ", ") + "]"
}

func renderHelp() string {
	lines := []string{
		"tab      switch modules / references",
		"/        filter the current list",
		"enter    show roots of the selected module",
		"l        toggle library roots",
		"esc      hide the roots panel",
		"r        rescan the workspace",
		"?        this help",
		"q        quit",
	}
	return boxStyle.Render("Keys\n\n" + strings.Join(lines, "\n"))
}

// renderKeyBar draws the toolbar currently on top of the toolbar stack.
func renderKeyBar(bar *toolbar.Manager) string {
	if bar == nil {
		return ""
	}
	top, ok := bar.Top()
	if !ok {
		return ""
	}
	return barStateStyle.Render(top.Kind.String()) + keyBarStyle.Render(keyBarActions(top))
}

func keyBarActions(top toolbar.Bar) string {
	switch top.Kind {
	case toolbar.Search:
		if top.Actions != "" {
			return top.Actions
		}
		return searchActions
	case toolbar.Popup:
		return "any key close"
	case toolbar.Dialog:
		return "y quit · n cancel"
	case toolbar.Debugger:
		return "debug session running"
	}
	return "tab panel · / filter · enter roots · l libraries · r rescan · ? help · q quit"
}

func initialModel(svc ports.ReferenceService, bar *toolbar.Manager, project string) model {
	moduleList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	moduleList.Title = "Modules"
	moduleList.SetShowStatusBar(false)
	moduleList.SetFilteringEnabled(true)
	moduleList.SetShowHelp(false)
	moduleList.DisableQuitKeybindings()

	refList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	refList.Title = "Path References"
	refList.SetShowStatusBar(false)
	refList.SetFilteringEnabled(true)
	refList.SetShowHelp(false)
	refList.DisableQuitKeybindings()

	if bar == nil {
		bar = toolbar.NewManager(nil)
	}
	bar.Open(project)
	bar.Dispatch(project, toolbar.EditorRegistered{Editor: editorModules})
	bar.Dispatch(project, toolbar.EditorRegistered{Editor: editorReferences})
	bar.Dispatch(project, toolbar.EditorFocusGained{Editor: editorModules})

	return model{
		moduleList: moduleList,
		refList:    refList,
		mode:       panelModules,
		svc:        svc,
		bar:        bar,
		project:    project,
		lastUpdate: time.Now(),
	}
}

func refreshCmd(svc ports.ReferenceService) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		snap, err := svc.Snapshot(ctx)
		if err != nil {
			return statusMsg(fmt.Sprintf("Refresh failed: %v", err))
		}
		modules, err := svc.Modules(ctx)
		if err != nil {
			modules = nil
		}
		return updateMsg{snapshot: snap, modules: modules}
	}
}

func rootsCmd(svc ports.ReferenceService, module string, libraries bool) tea.Cmd {
	return func() tea.Msg {
		res, err := svc.Roots(context.Background(), ports.RootsRequest{Module: module, IncludeLibraries: libraries})
		return rootsMsg{result: res, err: err}
	}
}

func scanCmd(svc ports.ReferenceService) tea.Cmd {
	return func() tea.Msg {
		res, err := svc.Scan(context.Background())
		return scanDoneMsg{result: res, err: err}
	}
}
