package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"errlog/internal/config"
	"errlog/internal/export"
	"errlog/internal/highlight"
	"errlog/internal/index"
	"errlog/internal/logstore"
	"errlog/internal/runner"
	"errlog/internal/summarize"
	"errlog/internal/watch"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
)

var (
	ErrEmptyNote   = errors.New("please input your research result")
	ErrNoSelection = errors.New("please select a line")
	ErrEmptyPath   = errors.New("please enter a file path")
)

// Copier puts text on the system clipboard.
type Copier interface {
	Copy(ctx context.Context, text string) error
}

// Deps are the collaborators the TUI drives. Indexer, Exporter and Copier
// may be nil; the matching actions then degrade or report an error.
type Deps struct {
	Store      *logstore.Store
	Exec       runner.Executor
	Summarizer summarize.Summarizer
	Indexer    *index.Indexer
	Exporter   *export.Exporter
	Copier     Copier
	Logger     *zap.Logger
	// RedactHome is replaced by *** in captured stderr. Empty disables it.
	RedactHome string
	// Watch reloads the table when the log file changes on disk.
	Watch      bool
}

type inputMode int

const (
	modeBrowse inputMode = iota
	modeCommand
	modeNote
	modeOpen
	modeSearch
)

type Model struct {
	ctx        context.Context
	cfg        config.AppConfig
	exec       runner.Executor
	summarizer summarize.Summarizer
	indexer    *index.Indexer
	exporter   *export.Exporter
	copier     Copier
	logger     *zap.Logger
	home       string
	watch      bool

	store       *logstore.Store
	recorder    *runner.Recorder
	summaries   *summarize.Service
	watchCtx    context.Context
	watchCancel context.CancelFunc
	changes     <-chan struct{}

	list     list.Model
	viewport viewport.Model
	help     help.Model
	spinner  spinner.Model
	command  textinput.Model
	note     textinput.Model
	path     textinput.Model
	search   textinput.Model
	keys     keyMap

	width  int
	height int

	mode        inputMode
	focusOnList bool
	focus       export.Focus
	loading     bool
	running     int
	summarizing bool
	rendering   bool
	renderNonce int

	rows        []logstore.Row
	byID        map[string]logstore.Row
	selectedID  string
	searchQuery string
	hits        []string
	rendered    map[string]string
	highlighted map[string]highlight.Result
	matchLines  []int
	matchCount  int
	matchIndex  int

	status string
	alert  string
	err    error
}

type rowsMsg struct {
	path string
	rows []logstore.Row
	err  error
}
type recordMsg struct {
	command string
	row     logstore.Row
	result  runner.Result
	err     error
}
type noteMsg struct {
	row logstore.Row
	err error
}
type summaryMsg struct {
	row   logstore.Row
	count int
	all   bool
	err   error
}
type openMsg struct {
	store *logstore.Store
	err   error
}
type searchMsg struct {
	query string
	ids   []string
	err   error
}
type exportMsg struct {
	path string
	err  error
}
type copyMsg struct {
	err error
}
type renderMsg struct {
	rowID    string
	cacheKey string
	rendered string
	nonce    int
	err      error
}
type logChangedMsg struct {
	path string
}

type rowItem struct {
	r logstore.Row
}

func (i rowItem) Title() string {
	cmd := strings.Join(strings.Fields(i.r.Command), " ")
	if cmd == "" {
		cmd = "(empty command)"
	}
	return ansi.Truncate(cmd, 120, "…")
}

func (i rowItem) Description() string {
	parts := []string{i.r.Timestamp}
	if strings.TrimSpace(i.r.Error) != "" {
		parts = append(parts, "stderr")
	}
	if strings.TrimSpace(i.r.UserNotes) != "" {
		parts = append(parts, "notes")
	}
	if strings.TrimSpace(i.r.ErrorSummary) != "" || strings.TrimSpace(i.r.NotesSummary) != "" {
		parts = append(parts, "summarized")
	}
	return strings.Join(parts, " | ")
}

func (i rowItem) FilterValue() string {
	return strings.ToLower(i.r.Command)
}

func NewModel(ctx context.Context, cfg config.AppConfig, deps Deps) Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 40, 20)
	l.Title = "Commands"
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	vp := viewport.New(60, 20)
	vp.SetContent("Loading command log...")

	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Points

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := Model{
		ctx:        ctx,
		cfg:        cfg,
		exec:       deps.Exec,
		summarizer: deps.Summarizer,
		indexer:    deps.Indexer,
		exporter:   deps.Exporter,
		copier:     deps.Copier,
		logger:     logger,
		home:       deps.RedactHome,
		watch:      deps.Watch,

		list:     l,
		viewport: vp,
		help:     h,
		spinner:  sp,
		command:  newInput("$ ", "Command to execute..."),
		note:     newInput("note> ", "Research result for the selected row..."),
		path:     newInput("open> ", "Path to a command log CSV..."),
		search:   newInput("/ ", "Search commands, output and notes..."),
		keys:     defaultKeys(),

		loading:     true,
		focusOnList: true,
		focus:       export.FocusNotes,
		byID:        make(map[string]logstore.Row),
		rendered:    make(map[string]string),
		highlighted: make(map[string]highlight.Result),
		matchIndex:  -1,
	}
	if m.summarizer == nil {
		m.summarizer = summarize.Disabled{}
	}
	m.attach(deps.Store)
	m.startWatch()
	return m
}

func newInput(prompt, placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = placeholder
	ti.CharLimit = 4096
	return ti
}

func (m *Model) attach(store *logstore.Store) {
	m.store = store
	m.recorder = runner.NewRecorder(m.exec, store,
		runner.WithHomeRedaction(m.home),
		runner.WithLogger(m.logger),
	)
	m.summaries = summarize.NewService(store, m.summarizer, m.logger)
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd(), m.rewatchCmd())
}

// Shutdown stops the file watcher. Call it with the final model once the
// program has exited.
func (m Model) Shutdown() {
	if m.watchCancel != nil {
		m.watchCancel()
	}
}

func (m Model) busy() bool {
	return m.loading || m.running > 0 || m.summarizing
}

func (m Model) loadCmd() tea.Cmd {
	store, idx, logger, ctx := m.store, m.indexer, m.logger, m.ctx
	return func() tea.Msg {
		rows, err := store.Load(ctx)
		if err != nil {
			return rowsMsg{path: store.Path(), err: err}
		}
		if idx != nil {
			if err := idx.Sync(ctx, store.Path(), rows); err != nil {
				logger.Warn("search index sync failed", zap.String("log", store.Path()), zap.Error(err))
			}
		}
		return rowsMsg{path: store.Path(), rows: rows}
	}
}

// startWatch replaces the watcher with one on the current log file.
func (m *Model) startWatch() {
	if m.watchCancel != nil {
		m.watchCancel()
	}
	m.watchCtx, m.watchCancel, m.changes = nil, nil, nil
	if !m.watch || m.store == nil {
		return
	}
	w, err := watch.New(m.store.Path(), watch.DefaultDebounce, m.logger)
	if err != nil {
		m.logger.Warn("log watcher unavailable", zap.String("log", m.store.Path()), zap.Error(err))
		return
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.watchCtx, m.watchCancel, m.changes = ctx, cancel, w.Changes()
	logger := m.logger
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Warn("log watcher stopped", zap.Error(err))
		}
	}()
}

// rewatchCmd waits for the next change signal of the current watcher.
func (m Model) rewatchCmd() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	return waitForChange(m.watchCtx, m.changes, m.store.Path())
}

func waitForChange(ctx context.Context, ch <-chan struct{}, path string) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			return logChangedMsg{path: path}
		}
	}
}

func (m Model) recordCmd(command string) tea.Cmd {
	rec, ctx := m.recorder, m.ctx
	return func() tea.Msg {
		row, res, err := rec.Record(ctx, command)
		return recordMsg{command: command, row: row, result: res, err: err}
	}
}

func (m Model) noteCmd(id, note string) tea.Cmd {
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		row, err := store.UpdateField(ctx, id, logstore.FieldUserNotes, note)
		return noteMsg{row: row, err: err}
	}
}

func (m Model) summarizeCmd(id string) tea.Cmd {
	svc, ctx := m.summaries, m.ctx
	return func() tea.Msg {
		row, err := svc.SummarizeRow(ctx, id)
		return summaryMsg{row: row, count: 1, err: err}
	}
}

func (m Model) summarizeAllCmd() tea.Cmd {
	svc, ctx := m.summaries, m.ctx
	return func() tea.Msg {
		n, err := svc.SummarizeAll(ctx)
		return summaryMsg{count: n, all: true, err: err}
	}
}

func (m Model) openCmd(path string) tea.Cmd {
	return func() tea.Msg {
		store, err := logstore.Open(path)
		return openMsg{store: store, err: err}
	}
}

func (m Model) searchCmd(query string) tea.Cmd {
	idx, ctx, path := m.indexer, m.ctx, m.store.Path()
	rows := append([]logstore.Row(nil), m.rows...)
	return func() tea.Msg {
		if strings.TrimSpace(query) == "" {
			return searchMsg{query: query}
		}
		if idx == nil {
			return searchMsg{query: query, ids: matchRows(rows, index.Terms(query))}
		}
		ids, err := idx.Search(ctx, path, query, 500)
		return searchMsg{query: query, ids: ids, err: err}
	}
}

func (m Model) exportCmd() tea.Cmd {
	if m.exporter == nil {
		return nil
	}
	exp, path := m.exporter, m.store.Path()
	rows := append([]logstore.Row(nil), m.rows...)
	return func() tea.Msg {
		out, err := exp.Export(path, rows)
		return exportMsg{path: out, err: err}
	}
}

func (m Model) copyCmd(row logstore.Row) tea.Cmd {
	if m.copier == nil {
		return nil
	}
	copier, parent := m.copier, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, 3*time.Second)
		defer cancel()
		return copyMsg{err: copier.Copy(ctx, export.Snippet(row))}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	wasBusy := m.busy()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		cmds = append(cmds, m.renderSelected(true))

	case rowsMsg:
		if m.store == nil || msg.path != m.store.Path() {
			break
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.showError("Could not read the log file", msg.err)
			break
		}
		m.err = nil
		m.applyRows(msg.rows)
		if strings.TrimSpace(m.searchQuery) != "" {
			cmds = append(cmds, m.searchCmd(m.searchQuery))
		}
		cmds = append(cmds, m.renderSelected(true))

	case recordMsg:
		if m.running > 0 {
			m.running--
		}
		if msg.err != nil {
			m.logger.Warn("command failed to run", zap.String("command", msg.command), zap.Error(msg.err))
			m.showError("Could not run command", msg.err)
			break
		}
		m.selectedID = msg.row.ID
		m.status = fmt.Sprintf("Ran %q (exit %d, %s)", shorten(msg.command, 40), msg.result.ExitCode, msg.result.Duration.Round(time.Millisecond))
		cmds = append(cmds, m.loadCmd())

	case noteMsg:
		if msg.err != nil {
			m.showError("Could not save note", msg.err)
			break
		}
		m.note.SetValue("")
		m.status = "Note saved"
		cmds = append(cmds, m.loadCmd())

	case summaryMsg:
		m.summarizing = false
		if msg.err != nil {
			m.logger.Warn("summarization failed", zap.Error(msg.err))
			m.showError("Summarization failed", msg.err)
			if msg.all && msg.count > 0 {
				cmds = append(cmds, m.loadCmd())
			}
			break
		}
		if msg.all {
			m.status = fmt.Sprintf("Summarized %d rows", msg.count)
		} else {
			m.status = "Summaries updated"
		}
		cmds = append(cmds, m.loadCmd())

	case openMsg:
		if msg.err != nil {
			m.showError("Could not open log file", msg.err)
			break
		}
		m.attach(msg.store)
		m.selectedID = ""
		m.searchQuery = ""
		m.hits = nil
		m.search.SetValue("")
		m.loading = true
		m.status = "Opened " + msg.store.Path()
		m.startWatch()
		cmds = append(cmds, m.loadCmd(), m.rewatchCmd())

	case searchMsg:
		if msg.query != m.searchQuery {
			break
		}
		if msg.err != nil {
			m.err = msg.err
			m.status = "Search failed"
			break
		}
		if strings.TrimSpace(msg.query) == "" {
			m.hits = nil
		} else {
			m.hits = msg.ids
			if m.hits == nil {
				m.hits = []string{}
			}
		}
		m.applyList()
		cmds = append(cmds, m.renderSelected(false))

	case exportMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Exported: " + msg.path
		}

	case copyMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Could not copy: " + msg.err.Error()
		} else {
			m.status = "Copied row to clipboard"
		}

	case renderMsg:
		if msg.nonce != m.renderNonce {
			break
		}
		m.rendering = false
		if msg.err != nil {
			m.err = msg.err
			m.status = "Render failed: " + msg.err.Error()
			break
		}
		m.rendered[msg.cacheKey] = msg.rendered
		if m.selectedID == msg.rowID {
			m.setViewportFromRendered(msg.cacheKey, msg.rendered, true)
		}

	case logChangedMsg:
		if m.store == nil || msg.path != m.store.Path() {
			break
		}
		m.logger.Debug("reloading after external change", zap.String("log", msg.path))
		cmds = append(cmds, m.loadCmd(), m.rewatchCmd())

	case tea.KeyMsg:
		next, cmd := m.handleKey(msg)
		if !wasBusy && next.busy() {
			cmd = tea.Batch(cmd, next.spinner.Tick)
		}
		return next, cmd
	}

	if m.busy() {
		if _, ok := msg.(spinner.TickMsg); ok {
			var spin tea.Cmd
			m.spinner, spin = m.spinner.Update(msg)
			cmds = append(cmds, spin)
		} else if !wasBusy {
			cmds = append(cmds, m.spinner.Tick)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.alert != "" {
		m.alert = ""
		return m, nil
	}
	if m.mode != modeBrowse {
		return m.handleInputKey(msg)
	}

	var cmds []tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Execute):
		return m, m.enterMode(modeCommand)
	case key.Matches(msg, m.keys.Note):
		if m.selectedID == "" {
			m.showError("", ErrNoSelection)
			return m, nil
		}
		return m, m.enterMode(modeNote)
	case key.Matches(msg, m.keys.Open):
		m.path.SetValue(m.store.Path())
		return m, m.enterMode(modeOpen)
	case key.Matches(msg, m.keys.Search):
		m.search.SetValue(m.searchQuery)
		return m, m.enterMode(modeSearch)
	case key.Matches(msg, m.keys.Esc):
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.search.SetValue("")
			m.hits = nil
			m.applyList()
			m.refreshViewportFromCache()
		}
		return m, nil
	case key.Matches(msg, m.keys.Summarize):
		if m.selectedID == "" {
			m.showError("", ErrNoSelection)
			return m, nil
		}
		if m.summarizing {
			return m, nil
		}
		m.summarizing = true
		m.status = "Summarizing..."
		return m, m.summarizeCmd(m.selectedID)
	case key.Matches(msg, m.keys.SummarizeAll):
		if m.summarizing {
			return m, nil
		}
		m.summarizing = true
		m.status = "Summarizing all rows..."
		return m, m.summarizeAllCmd()
	case key.Matches(msg, m.keys.CycleFocus):
		m.focus = m.focus.Next()
		m.status = "Detail: " + m.focus.String()
		return m, m.renderSelected(false)
	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()
	case key.Matches(msg, m.keys.Copy):
		row, ok := m.byID[m.selectedID]
		if !ok {
			m.showError("", ErrNoSelection)
			return m, nil
		}
		return m, m.copyCmd(row)
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, m.loadCmd()
	case key.Matches(msg, m.keys.Tab):
		m.focusOnList = !m.focusOnList
		return m, nil
	case key.Matches(msg, m.keys.FocusLeft):
		m.focusOnList = true
		return m, nil
	case key.Matches(msg, m.keys.FocusRight):
		m.focusOnList = false
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		if !m.focusOnList {
			m.viewport.HalfViewUp()
		}
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		if !m.focusOnList {
			m.viewport.HalfViewDown()
		}
		return m, nil
	case key.Matches(msg, m.keys.PrevMatch):
		m.jumpToMatch(-1)
		return m, nil
	case key.Matches(msg, m.keys.NextMatch):
		m.jumpToMatch(1)
		return m, nil
	}

	if m.focusOnList {
		prev := m.selectedID
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
		m.selectedID = m.currentSelectedID()
		if m.selectedID != prev {
			cmds = append(cmds, m.renderSelected(false))
		}
	} else {
		switch msg.String() {
		case "up", "k":
			m.viewport.LineUp(1)
		case "down", "j":
			m.viewport.LineDown(1)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) enterMode(mode inputMode) tea.Cmd {
	m.mode = mode
	in := m.activeInput()
	in.CursorEnd()
	return in.Focus()
}

func (m *Model) leaveMode() {
	if in := m.activeInput(); in != nil {
		in.Blur()
	}
	m.mode = modeBrowse
}

func (m *Model) activeInput() *textinput.Model {
	switch m.mode {
	case modeCommand:
		return &m.command
	case modeNote:
		return &m.note
	case modeOpen:
		return &m.path
	case modeSearch:
		return &m.search
	}
	return nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.mode == modeSearch {
			m.searchQuery = ""
			m.search.SetValue("")
			m.hits = nil
			m.applyList()
			m.refreshViewportFromCache()
		}
		m.leaveMode()
		return m, nil
	case "enter":
		return m.submit()
	}

	in := m.activeInput()
	before := strings.TrimSpace(in.Value())
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	cmds := []tea.Cmd{cmd}
	if m.mode == modeSearch {
		after := strings.TrimSpace(m.search.Value())
		if after != before {
			m.searchQuery = after
			m.refreshViewportFromCache()
			cmds = append(cmds, m.searchCmd(after))
		}
	}
	return m, tea.Batch(cmds...)
}

// submit validates the active input. On a validation error the mode stays
// open with its text so the user can fix it.
func (m Model) submit() (Model, tea.Cmd) {
	switch m.mode {
	case modeCommand:
		command := strings.TrimSpace(m.command.Value())
		if command == "" {
			m.showError("", runner.ErrEmptyCommand)
			return m, nil
		}
		m.command.SetValue("")
		m.leaveMode()
		m.running++
		m.status = "Running: " + shorten(command, 60)
		return m, m.recordCmd(command)

	case modeNote:
		if m.selectedID == "" {
			m.showError("", ErrNoSelection)
			return m, nil
		}
		note := m.note.Value()
		if strings.TrimSpace(note) == "" {
			m.showError("", ErrEmptyNote)
			return m, nil
		}
		m.leaveMode()
		return m, m.noteCmd(m.selectedID, note)

	case modeOpen:
		path := strings.TrimSpace(m.path.Value())
		if path == "" {
			m.showError("", ErrEmptyPath)
			return m, nil
		}
		m.leaveMode()
		return m, m.openCmd(path)

	case modeSearch:
		m.searchQuery = strings.TrimSpace(m.search.Value())
		m.leaveMode()
		m.refreshViewportFromCache()
		return m, m.searchCmd(m.searchQuery)
	}
	return m, nil
}

// showError raises the modal message. User-input sentinels are shown as
// plain prompts, everything else is prefixed with the failed action.
func (m *Model) showError(action string, err error) {
	m.alert = alertText(action, err)
}

func alertText(action string, err error) string {
	switch {
	case errors.Is(err, runner.ErrEmptyCommand):
		return "Please enter a command."
	case errors.Is(err, ErrEmptyNote):
		return "Please input your research result."
	case errors.Is(err, ErrNoSelection):
		return "Please select a line."
	case errors.Is(err, ErrEmptyPath):
		return "Please enter a file path."
	case errors.Is(err, summarize.ErrEmptyLog):
		return "The log file is empty."
	case errors.Is(err, summarize.ErrUnavailable):
		return "No summarizer is configured. Set summarizer.backend in the config file."
	}
	if action == "" {
		return err.Error()
	}
	return action + ": " + err.Error()
}

func (m *Model) applyRows(rows []logstore.Row) {
	m.rows = rows
	m.byID = make(map[string]logstore.Row, len(rows))
	for _, r := range rows {
		m.byID[r.ID] = r
	}
	m.rendered = make(map[string]string)
	m.highlighted = make(map[string]highlight.Result)
	m.applyList()
}

func (m Model) visibleRows() []logstore.Row {
	if m.hits == nil || strings.TrimSpace(m.searchQuery) == "" {
		return m.rows
	}
	out := make([]logstore.Row, 0, len(m.hits))
	for _, id := range m.hits {
		if r, ok := m.byID[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// applyList rebuilds the list items and keeps the selection on the same
// row ID when it is still visible.
func (m *Model) applyList() {
	rows := m.visibleRows()
	items := make([]list.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, rowItem{r: r})
	}
	m.list.SetItems(items)

	if len(rows) == 0 {
		m.selectedID = ""
		if strings.TrimSpace(m.searchQuery) == "" {
			m.viewport.SetContent("No commands recorded yet.\n\nPress x to execute a command.")
		} else {
			m.viewport.SetContent("No rows matched your search.")
		}
		return
	}

	selectIdx := 0
	if m.selectedID != "" {
		for i, r := range rows {
			if r.ID == m.selectedID {
				selectIdx = i
				break
			}
		}
	}
	m.list.Select(selectIdx)
	m.selectedID = rows[selectIdx].ID
}

func (m *Model) currentSelectedID() string {
	item, ok := m.list.SelectedItem().(rowItem)
	if !ok {
		return ""
	}
	return item.r.ID
}

func (m *Model) renderSelected(force bool) tea.Cmd {
	if m.selectedID == "" {
		m.clearMatches()
		return nil
	}
	row, ok := m.byID[m.selectedID]
	if !ok {
		m.viewport.SetContent("Loading row...")
		m.clearMatches()
		return nil
	}

	cacheKey := m.renderCacheKey(m.selectedID)
	if !force {
		if rendered, ok := m.rendered[cacheKey]; ok {
			m.setViewportFromRendered(cacheKey, rendered, false)
			return nil
		}
	}
	m.rendering = true
	m.renderNonce++
	wrap := m.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	return renderRowCmd(row, m.focus, cacheKey, wrap, m.renderNonce)
}

func renderRowCmd(row logstore.Row, focus export.Focus, cacheKey string, wrap, nonce int) tea.Cmd {
	return func() tea.Msg {
		md := export.BuildRowMarkdown(row, focus, 1)
		msg := renderMsg{rowID: row.ID, cacheKey: cacheKey, rendered: md, nonce: nonce}

		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(config.DefaultGlamourStyle),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return msg
		}
		if out, renderErr := r.Render(md); renderErr == nil {
			msg.rendered = out
		}
		return msg
	}
}

func (m Model) renderCacheKey(rowID string) string {
	return fmt.Sprintf("%s|w=%d|f=%d", rowID, m.viewport.Width, m.focus)
}

func (m Model) highlightCacheKey(cacheKey, query string) string {
	return cacheKey + "|q=" + strings.ToLower(strings.TrimSpace(query))
}

func (m *Model) refreshViewportFromCache() {
	if m.selectedID == "" {
		m.clearMatches()
		return
	}
	cacheKey := m.renderCacheKey(m.selectedID)
	rendered, ok := m.rendered[cacheKey]
	if !ok {
		return
	}
	oldOffset := m.viewport.YOffset
	m.setViewportFromRendered(cacheKey, rendered, false)
	m.viewport.SetYOffset(m.clampViewportOffset(oldOffset))
}

func (m *Model) setViewportFromRendered(cacheKey, rendered string, gotoTop bool) {
	content := rendered
	query := strings.TrimSpace(m.searchQuery)
	if query != "" {
		hKey := m.highlightCacheKey(cacheKey, query)
		res, ok := m.highlighted[hKey]
		if !ok {
			res = highlight.ApplyANSI(rendered, index.Terms(query), func(s string) string {
				return searchMatchStyle.Render(s)
			})
			m.highlighted[hKey] = res
		}
		content = res.Text
		m.setMatchMeta(res)
	} else {
		m.clearMatches()
	}

	m.viewport.SetContent(content)
	if gotoTop {
		m.viewport.GotoTop()
		if len(m.matchLines) > 0 {
			m.matchIndex = 0
			m.viewport.SetYOffset(m.clampViewportOffset(m.matchLines[0]))
		}
	}
}

func (m *Model) setMatchMeta(res highlight.Result) {
	if res.Count == 0 || len(res.LineIndex) == 0 {
		m.clearMatches()
		return
	}
	m.matchCount = res.Count
	m.matchLines = append(m.matchLines[:0], res.LineIndex...)
	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	}
}

func (m *Model) clearMatches() {
	m.matchLines = nil
	m.matchCount = 0
	m.matchIndex = -1
}

func (m *Model) jumpToMatch(delta int) {
	if len(m.matchLines) == 0 {
		m.status = "No search matches in this row"
		return
	}

	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	} else if delta > 0 {
		m.matchIndex = (m.matchIndex + 1) % len(m.matchLines)
	} else if delta < 0 {
		m.matchIndex = (m.matchIndex - 1 + len(m.matchLines)) % len(m.matchLines)
	}

	line := m.matchLines[m.matchIndex]
	m.viewport.SetYOffset(m.clampViewportOffset(line))
	m.status = fmt.Sprintf("Match %d/%d", m.matchIndex+1, m.matchCount)
}

func (m *Model) clampViewportOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

// matchRows is the in-memory search used when no index is configured. A row
// matches when every term occurs in it.
func matchRows(rows []logstore.Row, terms []string) []string {
	var ids []string
	for _, r := range rows {
		text := strings.ToLower(strings.Join([]string{
			r.Command, r.Output, r.Error, r.UserNotes, r.ErrorSummary, r.NotesSummary,
		}, "\n"))
		ok := len(terms) > 0
		for _, t := range terms {
			if !strings.Contains(text, strings.ToLower(t)) {
				ok = false
				break
			}
		}
		if ok {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	return ansi.Truncate(s, n, "...")
}

func logName(path string) string {
	return filepath.Base(path)
}
