package config

import (
	"fmt"
	"strings"
	"time"
)

// Problem is one invalid field.
type Problem struct {
	Field string // e.g. "items[2].time.hour"
	Msg   string
}

func (p Problem) String() string { return p.Field + ": " + p.Msg }

// ValidationError lists every problem found in one file, so a user can fix
// them all in a single edit.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "invalid config"
	case 1:
		return "invalid config: " + e.Problems[0].String()
	}
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("invalid config (%d problems): %s", len(e.Problems), strings.Join(parts, "; "))
}

func (e *ValidationError) Addf(field, format string, args ...any) {
	e.Problems = append(e.Problems, Problem{Field: field, Msg: fmt.Sprintf(format, args...)})
}

// check records err, which already names its field.
func (e *ValidationError) check(_ time.Duration, err error) {
	if err == nil {
		return
	}
	field, msg, ok := strings.Cut(err.Error(), ": ")
	if !ok {
		field, msg = "", err.Error()
	}
	e.Problems = append(e.Problems, Problem{Field: field, Msg: msg})
}

// OrNil returns e as an error, or nil when it holds no problems.
func (e *ValidationError) OrNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
