package display

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/godbus/dbus/v5"
)

// IdleSource reports how long the user has been idle.
type IdleSource interface {
	IdleTime(ctx context.Context) (time.Duration, error)
}

// IdleService describes a session bus service that exposes a no-argument
// idle-time method.
type IdleService struct {
	Name   string
	Dest   string
	Path   dbus.ObjectPath
	Method string
	Unit   time.Duration
}

// IdleServices are the supported idle services keyed by config name.
var IdleServices = map[string]IdleService{
	"mutter": {
		Name:   "mutter",
		Dest:   "org.gnome.Mutter.IdleMonitor",
		Path:   "/org/gnome/Mutter/IdleMonitor/Core",
		Method: "org.gnome.Mutter.IdleMonitor.GetIdletime",
		Unit:   time.Millisecond,
	},
	"freedesktop": {
		Name:   "freedesktop",
		Dest:   "org.freedesktop.ScreenSaver",
		Path:   "/org/freedesktop/ScreenSaver",
		Method: "org.freedesktop.ScreenSaver.GetSessionIdleTime",
		Unit:   time.Second,
	},
}

// IdleServiceNames returns the supported service names, sorted.
func IdleServiceNames() []string {
	names := make([]string, 0, len(IdleServices))
	for name := range IdleServices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// busCaller is the subset of dbus.BusObject used for queries.
type busCaller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// IdleMonitor queries an idle service over D-Bus. It holds no state besides
// the proxy; every call goes to the bus.
type IdleMonitor struct {
	service IdleService
	obj     busCaller
}

// NewIdleMonitor creates a proxy for the named idle service on conn. It fails
// if the service is unknown or currently has no owner on the bus.
func NewIdleMonitor(ctx context.Context, conn *dbus.Conn, name string) (*IdleMonitor, error) {
	service, ok := IdleServices[name]
	if !ok {
		return nil, fmt.Errorf("unknown idle service %q", name)
	}

	var hasOwner bool
	err := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, service.Dest).Store(&hasOwner)
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", service.Dest, err)
	}
	if !hasOwner {
		return nil, fmt.Errorf("%s is not running on the session bus", service.Dest)
	}

	return &IdleMonitor{
		service: service,
		obj:     conn.Object(service.Dest, service.Path),
	}, nil
}

// IdleTime calls the service's idle-time method and converts the reply.
func (m *IdleMonitor) IdleTime(ctx context.Context) (time.Duration, error) {
	call := m.obj.CallWithContext(ctx, m.service.Method, 0)
	if call.Err != nil {
		if errors.Is(call.Err, context.DeadlineExceeded) || errors.Is(call.Err, context.Canceled) {
			return 0, call.Err
		}
		return 0, fmt.Errorf("%w: %s: %w", ErrQuery, m.service.Method, call.Err)
	}

	if len(call.Body) != 1 {
		return 0, fmt.Errorf("%w: %s returned %d values", ErrQuery, m.service.Method, len(call.Body))
	}

	var n uint64
	switch v := call.Body[0].(type) {
	case uint64:
		n = v
	case uint32:
		n = uint64(v)
	default:
		return 0, fmt.Errorf("%w: %s returned %T", ErrQuery, m.service.Method, call.Body[0])
	}

	return time.Duration(n) * m.service.Unit, nil
}
