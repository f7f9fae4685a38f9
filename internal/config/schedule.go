package config

import (
	"bytes"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"boomyouup/internal/clock"
	"boomyouup/internal/schedule"

	yaml "go.yaml.in/yaml/v3"
)

// Schedule is the content of the schedule file: a list of times, each with
// the commands to run then.
//
//	- time: {hour: 7, minute: 0, second: 0}
//	  commands:
//	    - command: notepad
//	      parameters: todo.txt
//	      audio: false
//	      notify: 120
type Schedule struct {
	Items []Item
}

type Item struct {
	Time     clock.Time `yaml:"time"`
	Commands []Command  `yaml:"commands"`
}

// Command is one action. Audio selects playback of Command as a file;
// Notify is the pre-alert lead in seconds, negative for none.
type Command struct {
	Command    string `yaml:"command"`
	Parameters string `yaml:"parameters"`
	Audio      bool   `yaml:"audio"`
	Notify     int    `yaml:"notify"`
}

// Wire shapes with optional fields so missing keys can be reported.
type rawItem struct {
	Time     *rawTime     `yaml:"time"`
	Commands []rawCommand `yaml:"commands"`
}

type rawTime struct {
	Hour   *int `yaml:"hour"`
	Minute *int `yaml:"minute"`
	Second *int `yaml:"second"`
}

type rawCommand struct {
	Command    *string `yaml:"command"`
	Parameters string  `yaml:"parameters"`
	Audio      bool    `yaml:"audio"`
	Notify     *int    `yaml:"notify"`
}

// LoadSchedule reads and validates the schedule file at path.
func LoadSchedule(path string) (*Schedule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseSchedule(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseSchedule decodes and validates a schedule document. Every problem is
// reported in one *ValidationError; an empty list is schedule.ErrEmptyTable.
func ParseSchedule(data []byte) (*Schedule, error) {
	var raw []rawItem
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("yaml: %w", err)
	}

	var v ValidationError
	s := &Schedule{Items: make([]Item, 0, len(raw))}
	for i, ri := range raw {
		at := fmt.Sprintf("items[%d]", i)
		it := Item{Time: checkTime(&v, at+".time", ri.Time)}
		if len(ri.Commands) == 0 {
			v.Addf(at+".commands", "at least one command is required")
		}
		for j, rc := range ri.Commands {
			cat := fmt.Sprintf("%s.commands[%d]", at, j)
			c := Command{Parameters: rc.Parameters, Audio: rc.Audio, Notify: schedule.LeadNone}
			if rc.Command == nil || strings.TrimSpace(*rc.Command) == "" {
				v.Addf(cat+".command", "missing")
			} else {
				c.Command = *rc.Command
			}
			if rc.Notify != nil && *rc.Notify >= 0 {
				c.Notify = *rc.Notify
			}
			it.Commands = append(it.Commands, c)
		}
		s.Items = append(s.Items, it)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	if len(s.Items) == 0 {
		return nil, schedule.ErrEmptyTable
	}
	return s, nil
}

func checkTime(v *ValidationError, at string, rt *rawTime) clock.Time {
	if rt == nil {
		v.Addf(at, "missing")
		return clock.Time{}
	}
	field := func(name string, p *int, max int) int {
		switch {
		case p == nil:
			v.Addf(at+"."+name, "missing")
			return 0
		case *p < 0 || *p > max:
			v.Addf(at+"."+name, "out of range: %d not in [0, %d]", *p, max)
			return 0
		}
		return *p
	}
	return clock.Time{
		Hour:   field("hour", rt.Hour, 23),
		Minute: field("minute", rt.Minute, 59),
		Second: field("second", rt.Second, 59),
	}
}

// Table builds the primary event table. Commands sharing a time merge into
// one slot in file order.
func (s *Schedule) Table() *schedule.Table {
	t := &schedule.Table{}
	for _, it := range s.Items {
		for _, c := range it.Commands {
			t.Insert(it.Time, c.Action())
		}
	}
	return t
}

// Action converts a file command to a table action.
func (c Command) Action() schedule.Action {
	a := schedule.Action{
		Target:     c.Command,
		Arguments:  c.Parameters,
		Kind:       schedule.KindExecute,
		NotifyLead: c.Notify,
	}
	if c.Audio {
		a.Kind = schedule.KindPlayAudio
	}
	if a.NotifyLead < 0 {
		a.NotifyLead = schedule.LeadNone
	}
	return a
}

// ScheduleFromTable is the inverse of Table for a primary table. Synthetic
// notifications are skipped.
func ScheduleFromTable(t *schedule.Table) *Schedule {
	s := &Schedule{}
	for _, e := range t.Entries() {
		it := Item{Time: e.Time}
		for _, a := range e.Actions {
			if a.Kind == schedule.KindNotification {
				continue
			}
			it.Commands = append(it.Commands, Command{
				Command:    a.Target,
				Parameters: a.Arguments,
				Audio:      a.Kind == schedule.KindPlayAudio,
				Notify:     a.NotifyLead,
			})
		}
		if len(it.Commands) > 0 {
			s.Items = append(s.Items, it)
		}
	}
	return s
}

// Normalized returns the schedule sorted by time. Items sharing a time are
// merged into one, their commands kept in file order.
func (s *Schedule) Normalized() *Schedule { return ScheduleFromTable(s.Table()) }

// Marshal renders the schedule in the file format.
func (s *Schedule) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s.Items); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash fingerprints the schedule content; equal schedules hash equal.
func (s *Schedule) Hash() uint64 {
	b, err := s.Marshal()
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// SaveSchedule writes s to path atomically (temp file and rename).
func SaveSchedule(path string, s *Schedule) error {
	b, err := s.Marshal()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if fi, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmp, fi.Mode().Perm())
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
