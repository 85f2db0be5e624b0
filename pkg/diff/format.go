package diff

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatValue renders a value the way difference messages show it:
// strings quoted, nil as "nil", everything else with %v.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(t)
	case error:
		return fmt.Sprintf("error(%q)", t.Error())
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Format renders a result as one difference per line, in result order.
func Format(r *ComparisonResult) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for i, d := range r.Differences {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.String())
	}
	if r.Err != nil {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("comparison aborted: " + r.Err.Error())
	}
	return b.String()
}
