// Package desktop raises notifications through the freedesktop.org
// notification service on the session D-Bus.
package desktop

import (
	"context"
	"fmt"
	"sync"
	"time"

	logx "boomyouup/pkg/logx"

	"github.com/godbus/dbus/v5"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyCall = busName + ".Notify"
)

type Config struct {
	// Timeout is how long the notification stays up. Zero lets the server
	// decide; negative keeps it until dismissed.
	Timeout time.Duration
}

// Notifier holds one session bus connection, opened on first use and
// dropped after a failed call so the next one reconnects.
type Notifier struct {
	cfg Config
	log logx.Logger

	mu      sync.Mutex
	conn    *dbus.Conn
	obj     dbus.BusObject
	connect func() (*dbus.Conn, dbus.BusObject, error)
}

func New(cfg Config, log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{cfg: cfg, log: log.With(logx.String("comp", "desktop")), connect: sessionObject}
}

func sessionObject() (*dbus.Conn, dbus.BusObject, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Object(busName, objectPath), nil
}

// Notify shows summary and body under appName.
func (n *Notifier) Notify(ctx context.Context, appName, summary, body string) error {
	obj, err := n.object()
	if err != nil {
		return fmt.Errorf("desktop notify: session bus: %w", err)
	}
	call := obj.CallWithContext(ctx, notifyCall, 0,
		appName, uint32(0), "", summary, body,
		[]string{}, map[string]dbus.Variant{}, expireMillis(n.cfg.Timeout),
	)
	if call.Err != nil {
		n.reset()
		return fmt.Errorf("desktop notify: %w", call.Err)
	}
	var id uint32
	if err := call.Store(&id); err == nil {
		n.log.Debug("notification shown", logx.Int64("id", int64(id)))
	}
	return nil
}

// Close releases the bus connection.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		n.obj = nil
		return nil
	}
	err := n.conn.Close()
	n.conn, n.obj = nil, nil
	return err
}

func (n *Notifier) object() (dbus.BusObject, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.obj != nil {
		return n.obj, nil
	}
	conn, obj, err := n.connect()
	if err != nil {
		return nil, err
	}
	n.conn, n.obj = conn, obj
	return obj, nil
}

func (n *Notifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn != nil {
		_ = n.conn.Close()
	}
	n.conn, n.obj = nil, nil
}

func expireMillis(d time.Duration) int32 {
	switch {
	case d < 0:
		return 0
	case d == 0:
		return -1
	default:
		return int32(d / time.Millisecond)
	}
}
