// Package schedule holds the sorted table of daily slots and the pass that
// derives pre-alert notifications from it.
package schedule

import "fmt"

// Kind selects the effect an Action has when its slot fires.
type Kind int

const (
	KindExecute Kind = iota
	KindPlayAudio
	// KindNotification is only produced by Expand.
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindExecute:
		return "execute"
	case KindPlayAudio:
		return "play_audio"
	case KindNotification:
		return "notification"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	// LeadNone disables the notification for an action. Any negative lead
	// has the same meaning.
	LeadNone = -1

	// LeadSynthetic marks an action derived by Expand rather than loaded
	// from the schedule file.
	LeadSynthetic = -2
)

// Action is one thing to do when a slot fires.
//
// Target is a program, command or file path depending on Kind. NotifyLead is
// the number of seconds before the slot at which a notification is raised;
// see LeadNone and LeadSynthetic.
type Action struct {
	Target     string
	Arguments  string
	Kind       Kind
	NotifyLead int
}

// Synthetic reports whether a was generated by Expand.
func (a Action) Synthetic() bool {
	return a.Kind == KindNotification && a.NotifyLead == LeadSynthetic
}

// WantsNotification reports whether Expand should derive a pre-alert for a.
func (a Action) WantsNotification() bool {
	return a.NotifyLead >= 0 && !a.Synthetic()
}

// notification returns the synthetic pre-alert derived from a. Only the
// display fields are carried over.
func (a Action) notification() Action {
	return Action{
		Target:     a.Target,
		Arguments:  a.Arguments,
		Kind:       KindNotification,
		NotifyLead: LeadSynthetic,
	}
}
