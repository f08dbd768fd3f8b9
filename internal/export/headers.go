package export

import "report2csv/internal/config"

var (
	canonicalPrefix = []string{"sequence_no", "part_number", "part_title", "stage"}
	canonicalTable  = []string{"type", "code", "point", "upper_tolerance", "lower_tolerance", "part1", "part2", "part3", "part4"}

	localizedPrefix = []string{"导入序号", "零件号", "零件名", "阶段"}
	localizedTable  = []string{"类型", "编号", "点号", "上公差", "下公差", "零件1", "零件2", "零件3", "零件4"}
)

// Header returns the column names for style, with or without the prefix
// columns.
func Header(style string, includePrefix bool) []string {
	prefix, table := canonicalPrefix, canonicalTable
	if style == config.HeadersLocalized {
		prefix, table = localizedPrefix, localizedTable
	}
	out := make([]string, 0, len(prefix)+len(table))
	if includePrefix {
		out = append(out, prefix...)
	}
	return append(out, table...)
}
