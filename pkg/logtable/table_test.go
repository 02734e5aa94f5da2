package logtable

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/adminlog/pkg/core"
	"github.com/modoterra/adminlog/pkg/l10n"
)

func newTable(opts ...Option) *Table {
	cat := l10n.Builtin("en")
	return New(LogColumns(cat, l10n.NewDateFormatter("en", time.UTC)), cat, opts...)
}

func record(name string, ts string, ok, pdf bool) core.LogRecord {
	return core.LogRecord{
		Status:    core.Flag(ok),
		Timestamp: ts,
		SourceIP:  "10.0.0.1",
		FileName:  name,
		FileExt:   "odt",
		ToPDF:     core.Flag(pdf),
	}
}

func names(t *Table) []string {
	var out []string
	for _, r := range t.Records() {
		out = append(out, r.FileName)
	}
	return out
}

func TestExampleRecordRendering(t *testing.T) {
	tbl := newTable()
	tbl.AddRows([]core.LogRecord{{
		Status: true, Timestamp: "2024-01-01T00:00:00Z", SourceIP: "1.2.3.4",
		FileName: "a", FileExt: "pdf", ToPDF: true,
	}})
	tbl.Draw()

	rows := tbl.PageRows()
	require.Len(t, rows, 1)
	assert.Equal(t, Cell{Text: "Success", Tone: ToneSuccess}, rows[0][0])
	assert.Equal(t, "1/1/2024, 12:00:00 AM", rows[0][1].Text)
	assert.Equal(t, "1.2.3.4", rows[0][2].Text)
	assert.Equal(t, "a", rows[0][3].Text)
	assert.Equal(t, "pdf", rows[0][4].Text)
	assert.Equal(t, Cell{Text: "Yes", Tone: ToneSuccess}, rows[0][5])
}

func TestFailAndNoPDFRendering(t *testing.T) {
	tbl := newTable()
	tbl.AddRows([]core.LogRecord{record("b", "not a date", false, false)})
	tbl.Draw()

	rows := tbl.PageRows()
	require.Len(t, rows, 1)
	assert.Equal(t, Cell{Text: "Fail", Tone: ToneDanger}, rows[0][0])
	assert.Equal(t, "not a date", rows[0][1].Text)
	assert.Equal(t, Cell{}, rows[0][5])
}

func TestLocalizedTags(t *testing.T) {
	cat := l10n.Builtin("zh-TW")
	tbl := New(LogColumns(cat, l10n.NewDateFormatter("zh-TW", time.UTC)), cat)
	tbl.AddRows([]core.LogRecord{record("a", "2024-01-01 13:00:00", true, true)})
	tbl.Draw()

	row := tbl.PageRows()[0]
	assert.Equal(t, "成功", row[0].Text)
	assert.Equal(t, "2024/1/1 下午1:00:00", row[1].Text)
	assert.Equal(t, "是", row[5].Text)
	assert.Equal(t, "狀態", tbl.Headers()[0])
}

func TestDefaultOrderIsNewestFirst(t *testing.T) {
	tbl := newTable()
	assert.Equal(t, Order{Column: 1, Desc: true}, tbl.Order())

	tbl.AddRows([]core.LogRecord{
		record("old", "2023-01-01 00:00:00", true, false),
		record("new", "2024-06-01 00:00:00", true, false),
		record("mid", "2024-01-01T00:00:00Z", true, false),
	})
	tbl.Draw()
	assert.Equal(t, []string{"new", "mid", "old"}, names(tbl))
}

func TestNonSortableColumns(t *testing.T) {
	tbl := newTable()
	assert.Error(t, tbl.SetOrder(4, false))
	assert.Error(t, tbl.SetOrder(5, true))
	assert.Error(t, tbl.SetOrder(9, true))
	assert.NoError(t, tbl.SetOrder(3, false))
	assert.Equal(t, Order{Column: 3}, tbl.Order())
}

func TestNextSortColumnSkipsNonSortable(t *testing.T) {
	tbl := newTable()
	require.NoError(t, tbl.SetOrder(3, false))

	tbl.NextSortColumn()
	assert.Equal(t, 0, tbl.Order().Column)
	tbl.NextSortColumn()
	assert.Equal(t, 1, tbl.Order().Column)
}

func TestSortByStatusAndToggle(t *testing.T) {
	tbl := newTable()
	tbl.AddRows([]core.LogRecord{
		record("ok1", "2024-01-01", true, false),
		record("bad", "2024-01-02", false, false),
		record("ok2", "2024-01-03", true, false),
	})
	require.NoError(t, tbl.SetOrder(0, false))
	assert.Equal(t, []string{"bad", "ok1", "ok2"}, names(tbl))

	tbl.ToggleDirection()
	assert.Equal(t, []string{"ok1", "ok2", "bad"}, names(tbl))
}

func TestClearEmptiesView(t *testing.T) {
	tbl := newTable()
	tbl.AddRows([]core.LogRecord{record("a", "2024-01-01", true, false)})
	tbl.Draw()
	require.Equal(t, 1, tbl.Displayed())

	tbl.Clear()
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, 0, tbl.Displayed())
	assert.Nil(t, tbl.PageRows())
	assert.Equal(t, "No data available in table", tbl.EmptyText())
	assert.Equal(t, "Showing 0 to 0 of 0 entries", tbl.Info())
}

func TestAddRowsNotShownUntilDraw(t *testing.T) {
	tbl := newTable()
	tbl.AddRows([]core.LogRecord{record("a", "2024-01-01", true, false)})
	assert.Equal(t, 0, tbl.Displayed())
	assert.Equal(t, 0, tbl.Draws())

	tbl.Draw()
	assert.Equal(t, 1, tbl.Displayed())
	assert.Equal(t, 1, tbl.Draws())
}

func TestPagination(t *testing.T) {
	tbl := newTable(WithPageSize(10))
	var recs []core.LogRecord
	for i := 0; i < 25; i++ {
		recs = append(recs, record(fmt.Sprintf("f%02d", i), fmt.Sprintf("2024-01-01 00:00:%02d", i), true, false))
	}
	tbl.AddRows(recs)
	tbl.Draw()

	assert.Equal(t, 3, tbl.Pages())
	assert.Len(t, tbl.PageRows(), 10)
	assert.Equal(t, "Showing 1 to 10 of 25 entries", tbl.Info())

	assert.False(t, tbl.PrevPage())
	assert.True(t, tbl.NextPage())
	assert.True(t, tbl.NextPage())
	assert.False(t, tbl.NextPage())
	assert.Len(t, tbl.PageRows(), 5)
	assert.Equal(t, "Showing 21 to 25 of 25 entries", tbl.Info())

	tbl.SetPage(99)
	assert.Equal(t, 2, tbl.Page())
	tbl.SetPage(-1)
	assert.Equal(t, 0, tbl.Page())
}

func TestRedrawClampsPage(t *testing.T) {
	tbl := newTable(WithPageSize(2))
	tbl.AddRows([]core.LogRecord{
		record("a", "2024-01-01", true, false),
		record("b", "2024-01-02", true, false),
		record("c", "2024-01-03", true, false),
	})
	tbl.Draw()
	tbl.SetPage(1)

	tbl.Clear()
	tbl.AddRows([]core.LogRecord{record("z", "2024-01-04", true, false)})
	tbl.Draw()
	assert.Equal(t, 0, tbl.Page())
	assert.Len(t, tbl.PageRows(), 1)
}

func TestSearch(t *testing.T) {
	tbl := newTable()
	tbl.AddRows([]core.LogRecord{
		record("Invoice", "2024-01-01", true, false),
		record("receipt", "2024-01-02", false, false),
		record("invoice-2", "2024-01-03", false, false),
	})
	tbl.Draw()

	tbl.Search("INVOICE")
	assert.Equal(t, []string{"invoice-2", "Invoice"}, names(tbl))
	assert.Equal(t, "Showing 1 to 2 of 2 entries (filtered from 3 total entries)", tbl.Info())

	tbl.Search("fail")
	assert.Equal(t, 2, tbl.Displayed())

	tbl.Search("nothing matches")
	assert.Equal(t, 0, tbl.Displayed())
	assert.Equal(t, "No matching records found", tbl.EmptyText())

	tbl.Search("")
	assert.Equal(t, 3, tbl.Displayed())
}

func TestInvalidInitialOrderFallsBack(t *testing.T) {
	tbl := newTable(WithOrder(Order{Column: 5, Desc: true}))
	assert.Equal(t, Order{Column: 0}, tbl.Order())
}

func TestLocalizeKeepsRowsAndOrder(t *testing.T) {
	tbl := newTable()
	tbl.AddRows([]core.LogRecord{
		record("a", "2024-01-01 00:00:00", true, false),
		record("b", "2024-01-02 00:00:00", false, true),
	})
	require.NoError(t, tbl.SetOrder(3, false))
	tbl.Draw()

	cat := l10n.Builtin("zh-TW")
	tbl.Localize(LogColumns(cat, l10n.NewDateFormatter("zh-TW", time.UTC)), cat)
	tbl.Draw()

	assert.Equal(t, []string{"a", "b"}, names(tbl))
	assert.Equal(t, Order{Column: 3}, tbl.Order())
	rows := tbl.PageRows()
	require.Len(t, rows, 2)
	assert.Equal(t, cat.T("Success"), rows[0][0].Text)
	assert.NotEqual(t, "Success", rows[0][0].Text)
}
