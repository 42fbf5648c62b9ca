package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatRecordOrg renders a record as an Org-mode block with its facts in
// a PROPERTIES drawer.
func FormatRecordOrg(r Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Exit: %s %s (%s)\n", strings.ToUpper(r.Direction.String()), r.Reason, shortID(r.PositionID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", r.ID)
	fmt.Fprintf(&b, ":POSITION_ID: %s\n", r.PositionID)
	fmt.Fprintf(&b, ":DIRECTION: %s\n", r.Direction)
	fmt.Fprintf(&b, ":QTY: %d\n", r.Qty)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.2f\n", r.EntryPrice)
	fmt.Fprintf(&b, ":EXIT_PRICE: %.2f\n", r.ExitPrice)
	fmt.Fprintf(&b, ":EXIT_TIME: %s\n", r.ExitTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":PNL: %.2f\n", r.PnL)
	fmt.Fprintf(&b, ":REASON: %s\n", r.Reason)
	fmt.Fprintf(&b, ":BALANCE: %.2f\n", r.Balance)
	b.WriteString(":END:\n")
	return b.String()
}

// FormatOrg renders records separated by blank lines.
func FormatOrg(recs []Record) string {
	var b strings.Builder
	for i, r := range recs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatRecordOrg(r))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
