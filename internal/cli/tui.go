package cli

import (
	"context"
	"fmt"

	"errlog/internal/clipboard"
	"errlog/internal/export"
	"errlog/internal/index"
	"errlog/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func (a *app) runTUI(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	model, err := a.newSummarizer()
	if err != nil {
		return err
	}
	exp, err := export.New(a.cfg.ExportDir)
	if err != nil {
		return err
	}

	// Search still works without the index, just slower.
	idx, err := index.New(a.cfg.IndexPath, a.cfg.Reindex)
	if err != nil {
		a.logger.Warn("search index unavailable", zap.String("path", a.cfg.IndexPath), zap.Error(err))
		idx = nil
	} else {
		defer idx.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := ui.NewModel(ctx, a.cfg, ui.Deps{
		Store:      store,
		Exec:       a.newRunner(),
		Summarizer: model,
		Indexer:    idx,
		Exporter:   exp,
		Copier:     clipboard.New(),
		Logger:     a.logger,
		RedactHome: a.redactHome(),
		Watch:      true,
	})

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(ui.Model); ok {
		fm.Shutdown()
	}
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
