package app

import (
	"fmt"

	logx "boomyouup/pkg/logx"

	"github.com/coreos/go-systemd/v22/daemon"
)

func sdNotify(state string) (bool, error) { return daemon.SdNotify(false, state) }

// notify reports state to systemd. Outside a Type=notify unit this does nothing.
func (a *App) notify(state string) {
	if a.sdNotify == nil {
		return
	}
	sent, err := a.sdNotify(state)
	if err != nil {
		a.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		a.log.Debug("sd_notify", logx.String("state", state))
	}
}

// notifyStatus publishes the last fired slot as the unit status line, with
// the loop's counters once a loop is running.
func (a *App) notifyStatus(slot any) {
	status := fmt.Sprintf("STATUS=fired %v", slot)
	if snap, ok := a.Snapshot(); ok {
		status += fmt.Sprintf(" (%d fired, %d missed)", snap.Fired, snap.Missed)
	}
	a.notify(status)
}
