package cli

import (
	"context"
	"errors"

	coreapp "pathref/internal/core/app"
	"pathref/internal/core/ports"
	"pathref/internal/engine/toolbar"

	tea "github.com/charmbracelet/bubbletea"
)

func runUI(ctx context.Context, app *coreapp.App, project string) error {
	bar := toolbar.NewManager(nil)
	m := initialModel(app, bar, project)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	app.SetUpdateHandler(func(update ports.WatchUpdate) {
		modules, err := app.Modules(ctx)
		if err != nil {
			modules = nil
		}
		p.Send(updateMsg{snapshot: update.Snapshot, modules: modules})
	})

	go func() {
		p.Send(refreshCmd(app)())
	}()

	_, err := p.Run()
	bar.Close(project)
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
