package model

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/modoterra/adminlog/pkg/adminclient"
	"github.com/modoterra/adminlog/pkg/l10n"
	"github.com/modoterra/adminlog/pkg/logtable"
)

// Mode identifies the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
)

// Refresher requests a new log snapshot.
type Refresher interface {
	Refresh()
}

// Options configures the App.
type Options struct {
	Target      string // admin socket URL, shown in the header
	PageSize    int
	AutoRefresh string // cron spec, shown in the header when set
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// App is the root Bubble Tea model.
type App struct {
	// Connection
	refresher Refresher
	bridge    *Bridge
	connected bool
	closed    bool

	// State
	spec    adminclient.TableSpec
	ready   bool
	catalog l10n.Catalog
	dates   l10n.DateFormatter
	table   *logtable.Table

	// UI
	mode   Mode
	search textinput.Model
	pages  paginator.Model
	help   help.Model
	keys   keyMap
	width  int
	height int

	opts      Options
	statusMsg string
}

// New creates a new TUI app model fed by bridge.
func New(r Refresher, bridge *Bridge, opts Options) App {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	si := textinput.New()
	si.Placeholder = "search..."
	si.CharLimit = 64

	pg := paginator.New()
	pg.Type = paginator.Dots

	return App{
		refresher: r,
		bridge:    bridge,
		search:    si,
		pages:     pg,
		help:      help.New(),
		keys:      defaultKeys(),
		mode:      ModeNormal,
		opts:      opts,
		statusMsg: "connecting to " + opts.Target,
	}
}

// Init starts listening for client events.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.bridge.wait(),
		tea.SetWindowTitle("adminlog"),
	)
}

// catalogMsg carries the translation file fetched from the module.
type catalogMsg struct{ catalog l10n.Catalog }

// catalogErrMsg reports a translation file that could not be fetched.
type catalogErrMsg struct{ err error }

func loadCatalogCmd(client *http.Client, url string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cat, err := l10n.Load(ctx, client, url)
		if err != nil {
			return catalogErrMsg{err}
		}
		return catalogMsg{cat}
	}
}

// refreshCmd runs off the update loop: the client may be blocked handing
// events to the bridge this loop drains.
func refreshCmd(r Refresher) tea.Cmd {
	return func() tea.Msg {
		r.Refresh()
		return nil
	}
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		return a, nil

	case socketOpenMsg:
		a.connected = true
		a.closed = false
		a.ready = false
		a.statusMsg = "connected, waiting for module info"
		return a, a.bridge.wait()

	case socketClosedMsg:
		a.connected = false
		a.closed = true
		a.statusMsg = "connection closed"
		if msg.err != nil {
			a.statusMsg += ": " + msg.err.Error()
		}
		return a, a.bridge.wait()

	case tableInitMsg:
		a.initTable(msg.spec)
		a.statusMsg = "module " + moduleLabel(msg.spec) + " ready"
		return a, tea.Batch(a.bridge.wait(), loadCatalogCmd(a.opts.HTTPClient, msg.spec.L10nURL))

	case tableClearMsg:
		if a.table != nil {
			a.table.Clear()
			a.syncPages()
		}
		return a, a.bridge.wait()

	case tableRowsMsg:
		if a.table != nil {
			a.table.AddRows(msg.records)
		}
		return a, a.bridge.wait()

	case tableRedrawMsg:
		if a.table != nil {
			a.table.Draw()
			a.syncPages()
			a.statusMsg = "updated " + time.Now().Format(time.TimeOnly)
		}
		return a, a.bridge.wait()

	case catalogMsg:
		a.localize(msg.catalog)
		return a, nil

	case catalogErrMsg:
		a.opts.Logger.Warn("translations unavailable, using built-in", "url", a.spec.L10nURL, "err", msg.err)
		return a, nil

	case errorMsg:
		a.statusMsg = "error: " + msg.err.Error()
		return a, a.bridge.wait()

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) initTable(spec adminclient.TableSpec) {
	a.spec = spec
	a.ready = true
	a.catalog = l10n.Builtin(spec.Locale)
	a.dates = l10n.NewDateFormatter(spec.Locale, nil)
	a.table = logtable.New(
		logtable.LogColumns(a.catalog, a.dates),
		a.catalog,
		logtable.WithPageSize(a.opts.PageSize),
	)
	if term := a.search.Value(); term != "" {
		a.table.Search(term)
	}
	a.syncPages()
}

func (a *App) localize(fetched l10n.Catalog) {
	if a.table == nil {
		return
	}
	a.catalog = l10n.Builtin(a.spec.Locale).Merge(fetched)
	a.table.Localize(logtable.LogColumns(a.catalog, a.dates), a.catalog)
	if a.table.Draws() > 0 {
		a.table.Draw()
	}
}

func (a *App) syncPages() {
	a.pages.PerPage = a.table.PageSize()
	a.pages.SetTotalPages(a.table.Displayed())
	a.pages.Page = a.table.Page()
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Search mode
	if a.mode == ModeSearch {
		switch msg.String() {
		case "esc":
			a.mode = ModeNormal
			a.search.SetValue("")
			a.search.Blur()
			a.applySearch()
			return a, nil
		case "enter":
			a.mode = ModeNormal
			a.search.Blur()
			return a, nil
		case "ctrl+c":
			return a, tea.Quit
		default:
			var cmd tea.Cmd
			a.search, cmd = a.search.Update(msg)
			a.applySearch()
			return a, cmd
		}
	}

	// Normal mode
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll

	case key.Matches(msg, a.keys.Refresh):
		if a.refresher != nil {
			a.statusMsg = "refresh requested"
			return a, refreshCmd(a.refresher)
		}

	case key.Matches(msg, a.keys.Search):
		a.mode = ModeSearch
		a.search.Focus()
		return a, textinput.Blink
	}

	if a.table == nil {
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.NextPage):
		a.table.NextPage()
	case key.Matches(msg, a.keys.PrevPage):
		a.table.PrevPage()
	case key.Matches(msg, a.keys.Sort):
		a.table.NextSortColumn()
	case key.Matches(msg, a.keys.Reverse):
		a.table.ToggleDirection()
	}
	a.syncPages()
	return a, nil
}

func (a *App) applySearch() {
	if a.table == nil {
		return
	}
	a.table.Search(a.search.Value())
	a.syncPages()
}

func moduleLabel(spec adminclient.TableSpec) string {
	label := spec.Module.Name
	if label == "" {
		label = spec.ServiceURI
	}
	if spec.Module.Version != "" {
		label += " " + spec.Module.Version
	}
	return label
}
