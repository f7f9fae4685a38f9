package schedule

import "boomyouup/internal/clock"

// Expand returns a copy of primary with one synthetic notification per
// action that asked for one. The notification lands NotifyLead seconds
// before the action's slot, wrapping into the previous day when needed, and
// merges into any entry already at that time. A lead of 0 therefore adds the
// notification to the action's own slot, after the primary actions.
//
// primary is not modified.
func Expand(primary *Table) *Table {
	out := primary.Clone()
	for i := primary.Len() - 1; i >= 0; i-- {
		e := primary.entries[i]
		for _, a := range e.Actions {
			if !a.WantsNotification() {
				continue
			}
			out.InsertReverse(AlertTime(e.Time, a.NotifyLead), a.notification())
		}
	}
	return out
}

// AlertTime is the time of day at which a notification with the given lead
// fires for a slot at tm.
func AlertTime(tm clock.Time, lead int) clock.Time {
	return tm.Sub(clock.FromSeconds(lead))
}
