package l10n

import (
	"time"

	"golang.org/x/text/language"
)

type dateLayout func(t time.Time) string

func layout(s string) dateLayout {
	return func(t time.Time) string { return t.Format(s) }
}

var dateTags = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.TraditionalChinese,
	language.SimplifiedChinese,
	language.Japanese,
	language.German,
	language.French,
}

var dateMatcher = language.NewMatcher(dateTags)

var dateLayouts = []dateLayout{
	layout("1/2/2006, 3:04:05 PM"),
	layout("02/01/2006, 15:04:05"),
	func(t time.Time) string {
		half := "上午"
		if t.Hour() >= 12 {
			half = "下午"
		}
		return t.Format("2006/1/2 ") + half + t.Format("3:04:05")
	},
	layout("2006/1/2 15:04:05"),
	layout("2006/1/2 15:04:05"),
	layout("2.1.2006, 15:04:05"),
	layout("02/01/2006 15:04:05"),
}

// DateFormatter renders timestamps the way a browser's toLocaleString would
// for the chosen locale.
type DateFormatter struct {
	format dateLayout
	loc    *time.Location
}

// NewDateFormatter picks the closest supported layout for locale. A nil
// location means time.Local.
func NewDateFormatter(locale string, loc *time.Location) DateFormatter {
	if loc == nil {
		loc = time.Local
	}
	idx := 0
	if tag, err := language.Parse(locale); err == nil {
		_, idx, _ = dateMatcher.Match(tag)
	}
	return DateFormatter{format: dateLayouts[idx], loc: loc}
}

// Format renders t in the formatter's locale and zone.
func (f DateFormatter) Format(t time.Time) string {
	return f.format(t.In(f.loc))
}
