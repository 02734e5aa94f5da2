package logtable

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/modoterra/adminlog/pkg/core"
	"github.com/modoterra/adminlog/pkg/l10n"
)

// DefaultPageSize matches the page length browsers show by default.
const DefaultPageSize = 10

// Order is the active sort: a column index and direction.
type Order struct {
	Column int
	Desc   bool
}

// DefaultOrder sorts by time, newest first.
var DefaultOrder = Order{Column: 1, Desc: true}

// Table holds the current snapshot and the derived, displayed view of it.
// It is not safe for concurrent use.
type Table struct {
	columns  []Column
	cat      l10n.Catalog
	rows     []core.LogRecord
	view     []int
	order    Order
	search   string
	page     int
	pageSize int
	draws    int
}

// Option configures a Table.
type Option func(*Table)

// WithPageSize sets the number of rows per page. Values below 1 are ignored.
func WithPageSize(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.pageSize = n
		}
	}
}

// WithOrder sets the initial sort.
func WithOrder(o Order) Option {
	return func(t *Table) { t.order = o }
}

// New creates an empty table.
func New(columns []Column, cat l10n.Catalog, opts ...Option) *Table {
	t := &Table{
		columns:  columns,
		cat:      cat,
		order:    DefaultOrder,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.order.Column < 0 || t.order.Column >= len(columns) || !columns[t.order.Column].Sortable {
		t.order = Order{Column: firstSortable(columns)}
	}
	return t
}

func firstSortable(columns []Column) int {
	for i, c := range columns {
		if c.Sortable {
			return i
		}
	}
	return 0
}

// Clear removes every row, displayed or not.
func (t *Table) Clear() {
	t.rows = nil
	t.view = nil
	t.page = 0
}

// AddRows appends records. They are not displayed until Draw.
func (t *Table) AddRows(records []core.LogRecord) {
	t.rows = append(t.rows, records...)
}

// Draw filters, sorts and paginates the rows.
func (t *Table) Draw() {
	t.draws++

	term := strings.ToLower(t.search)
	view := make([]int, 0, len(t.rows))
	for i := range t.rows {
		if term == "" || t.matches(t.rows[i], term) {
			view = append(view, i)
		}
	}

	if t.order.Column < len(t.columns) && t.columns[t.order.Column].Compare != nil {
		col := t.columns[t.order.Column]
		slices.SortStableFunc(view, func(a, b int) int {
			c := col.Compare(t.rows[a], t.rows[b])
			if t.order.Desc {
				return -c
			}
			return c
		})
	}

	t.view = view
	t.page = min(t.page, max(t.Pages()-1, 0))
}

func (t *Table) matches(r core.LogRecord, term string) bool {
	for _, col := range t.columns {
		if strings.Contains(strings.ToLower(col.Render(r).Text), term) {
			return true
		}
	}
	return false
}

// Localize swaps in columns and a catalog for another translation. Rows,
// order, search and page are kept; call Draw to re-render.
func (t *Table) Localize(columns []Column, cat l10n.Catalog) {
	t.columns = columns
	t.cat = cat
}

// Columns returns the column schema.
func (t *Table) Columns() []Column { return t.columns }

// Headers returns the localized column titles.
func (t *Table) Headers() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = t.cat.T(c.Title)
	}
	return out
}

// Len is the number of rows held, before filtering.
func (t *Table) Len() int { return len(t.rows) }

// Displayed is the number of rows that pass the search filter.
func (t *Table) Displayed() int { return len(t.view) }

// Draws counts calls to Draw.
func (t *Table) Draws() int { return t.draws }

// Order returns the active sort.
func (t *Table) Order() Order { return t.order }

// SetOrder changes the sort and redraws.
func (t *Table) SetOrder(column int, desc bool) error {
	if column < 0 || column >= len(t.columns) {
		return fmt.Errorf("column %d out of range", column)
	}
	if !t.columns[column].Sortable {
		return fmt.Errorf("column %q is not sortable", t.columns[column].Key)
	}
	t.order = Order{Column: column, Desc: desc}
	t.Draw()
	return nil
}

// NextSortColumn moves the sort to the next sortable column, ascending.
func (t *Table) NextSortColumn() {
	for i := 1; i <= len(t.columns); i++ {
		c := (t.order.Column + i) % len(t.columns)
		if t.columns[c].Sortable {
			t.order = Order{Column: c}
			t.Draw()
			return
		}
	}
}

// ToggleDirection flips the sort direction.
func (t *Table) ToggleDirection() {
	t.order.Desc = !t.order.Desc
	t.Draw()
}

// Search filters rows to those with a cell containing term (case
// insensitive) and returns to the first page.
func (t *Table) Search(term string) {
	t.search = term
	t.page = 0
	t.Draw()
}

// SearchTerm returns the active filter.
func (t *Table) SearchTerm() string { return t.search }

// Pages is the number of pages in the displayed view.
func (t *Table) Pages() int {
	return (len(t.view) + t.pageSize - 1) / t.pageSize
}

// Page is the zero-based current page.
func (t *Table) Page() int { return t.page }

// PageSize is the number of rows per page.
func (t *Table) PageSize() int { return t.pageSize }

// NextPage advances one page. It reports whether the page changed.
func (t *Table) NextPage() bool {
	if t.page+1 >= t.Pages() {
		return false
	}
	t.page++
	return true
}

// PrevPage goes back one page. It reports whether the page changed.
func (t *Table) PrevPage() bool {
	if t.page == 0 {
		return false
	}
	t.page--
	return true
}

// SetPage jumps to page n, clamped to the valid range.
func (t *Table) SetPage(n int) {
	t.page = max(0, min(n, t.Pages()-1))
}

// PageRows renders the rows of the current page.
func (t *Table) PageRows() [][]Cell {
	start := t.page * t.pageSize
	if start >= len(t.view) {
		return nil
	}
	end := min(start+t.pageSize, len(t.view))

	out := make([][]Cell, 0, end-start)
	for _, idx := range t.view[start:end] {
		out = append(out, t.renderRow(t.rows[idx]))
	}
	return out
}

func (t *Table) renderRow(r core.LogRecord) []Cell {
	cells := make([]Cell, len(t.columns))
	for i, c := range t.columns {
		cells[i] = c.Render(r)
	}
	return cells
}

// Records returns every displayed record in display order.
func (t *Table) Records() []core.LogRecord {
	out := make([]core.LogRecord, len(t.view))
	for i, idx := range t.view {
		out[i] = t.rows[idx]
	}
	return out
}

// Info describes the visible range, e.g. "Showing 1 to 10 of 57 entries".
func (t *Table) Info() string {
	if len(t.view) == 0 {
		info := t.cat.T("sInfoEmpty")
		if len(t.rows) > 0 {
			info += " " + t.filteredNote()
		}
		return info
	}

	start := t.page*t.pageSize + 1
	end := min(start+t.pageSize-1, len(t.view))
	info := strings.NewReplacer(
		"_START_", strconv.Itoa(start),
		"_END_", strconv.Itoa(end),
		"_TOTAL_", strconv.Itoa(len(t.view)),
	).Replace(t.cat.T("sInfo"))

	if len(t.view) < len(t.rows) {
		info += " " + t.filteredNote()
	}
	return info
}

func (t *Table) filteredNote() string {
	return strings.ReplaceAll(t.cat.T("sInfoFiltered"), "_MAX_", strconv.Itoa(len(t.rows)))
}

// EmptyText is shown in place of rows when nothing is displayed.
func (t *Table) EmptyText() string {
	if len(t.rows) > 0 && len(t.view) == 0 {
		return t.cat.T("sZeroRecords")
	}
	return t.cat.T("sEmptyTable")
}
