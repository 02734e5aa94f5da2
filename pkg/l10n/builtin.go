package l10n

import "golang.org/x/text/language"

var builtinTags = []language.Tag{
	language.English,
	language.TraditionalChinese,
	language.SimplifiedChinese,
}

var builtinMatcher = language.NewMatcher(builtinTags)

// Keys used by the table outside of the column renderers follow the
// DataTables language file so a server-provided file overrides them.
var builtinCatalogs = []Catalog{
	{
		"Success":               "Success",
		"Fail":                  "Fail",
		"Yes":                   "Yes",
		"sEmptyTable":           "No data available in table",
		"sInfo":                 "Showing _START_ to _END_ of _TOTAL_ entries",
		"sInfoEmpty":            "Showing 0 to 0 of 0 entries",
		"sInfoFiltered":         "(filtered from _MAX_ total entries)",
		"sSearch":               "Search:",
		"sZeroRecords":          "No matching records found",
		"sLoadingRecords":       "Loading...",
		"oPaginate.sNext":       "Next",
		"oPaginate.sPrevious":   "Previous",
		"oAria.sSortAscending":  ": activate to sort column ascending",
		"oAria.sSortDescending": ": activate to sort column descending",
		"Status":                "Status",
		"Time":                  "Time",
		"Source IP":             "Source IP",
		"File name":             "File name",
		"Type":                  "Type",
		"To PDF":                "To PDF",
	},
	{
		"Success":             "成功",
		"Fail":                "失敗",
		"Yes":                 "是",
		"sEmptyTable":         "目前沒有資料",
		"sInfo":               "顯示第 _START_ 至 _END_ 項結果，共 _TOTAL_ 項",
		"sInfoEmpty":          "顯示第 0 至 0 項結果，共 0 項",
		"sInfoFiltered":       "(從 _MAX_ 項結果中過濾)",
		"sSearch":             "搜尋:",
		"sZeroRecords":        "沒有符合的結果",
		"sLoadingRecords":     "載入中...",
		"oPaginate.sNext":     "下一頁",
		"oPaginate.sPrevious": "上一頁",
		"Status":              "狀態",
		"Time":                "時間",
		"Source IP":           "來源 IP",
		"File name":           "檔名",
		"Type":                "類型",
		"To PDF":              "轉 PDF",
	},
	{
		"Success":             "成功",
		"Fail":                "失败",
		"Yes":                 "是",
		"sEmptyTable":         "表中数据为空",
		"sInfo":               "显示第 _START_ 至 _END_ 项结果，共 _TOTAL_ 项",
		"sInfoEmpty":          "显示第 0 至 0 项结果，共 0 项",
		"sInfoFiltered":       "(由 _MAX_ 项结果过滤)",
		"sSearch":             "搜索:",
		"sZeroRecords":        "没有匹配结果",
		"sLoadingRecords":     "载入中...",
		"oPaginate.sNext":     "下页",
		"oPaginate.sPrevious": "上页",
		"Status":              "状态",
		"Time":                "时间",
		"Source IP":           "来源 IP",
		"File name":           "文件名",
		"Type":                "类型",
		"To PDF":              "转 PDF",
	},
}

// Builtin returns the compiled-in catalog closest to locale.
func Builtin(locale string) Catalog {
	tag, err := language.Parse(locale)
	if err != nil {
		return builtinCatalogs[0]
	}
	_, idx, _ := builtinMatcher.Match(tag)
	return builtinCatalogs[idx]
}
