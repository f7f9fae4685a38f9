package config

import (
	"sort"

	logx "boomyouup/pkg/logx"
)

// SummarizeScheduleChange compares two schedules slot by slot and returns the
// changed slot times (sorted, "HH:MM:SS") plus log fields describing the
// change. Command parameters are never logged.
func SummarizeScheduleChange(oldS, newS *Schedule) ([]string, []logx.Field) {
	before := slotCommands(oldS)
	after := slotCommands(newS)

	var added, removed, changed []string
	for slot, cmds := range after {
		prev, ok := before[slot]
		switch {
		case !ok:
			added = append(added, slot)
		case !sameCommands(prev, cmds):
			changed = append(changed, slot)
		}
	}
	for slot := range before {
		if _, ok := after[slot]; !ok {
			removed = append(removed, slot)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(changed)

	all := make([]string, 0, len(added)+len(removed)+len(changed))
	all = append(all, added...)
	all = append(all, removed...)
	all = append(all, changed...)
	sort.Strings(all)

	fields := []logx.Field{
		logx.Int("slots", len(after)),
		logx.Any("added", added),
		logx.Any("removed", removed),
		logx.Any("changed", changed),
	}
	return all, fields
}

func slotCommands(s *Schedule) map[string][]Command {
	out := map[string][]Command{}
	if s == nil {
		return out
	}
	for _, it := range s.Normalized().Items {
		out[it.Time.String()] = it.Commands
	}
	return out
}

func sameCommands(a, b []Command) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
