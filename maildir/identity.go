package maildir

import (
	"os"
	"time"
)

// Identity supplies the process and host components of delivery names.
// Both values must stay stable for the duration of one delivery.
type Identity interface {
	Pid() int
	Hostname() (string, error)
}

// SystemIdentity reports the running process id and the sanitized host name.
type SystemIdentity struct{}

// Pid returns os.Getpid().
func (SystemIdentity) Pid() int {
	return os.Getpid()
}

// Hostname returns the sanitized system host name.
func (SystemIdentity) Hostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return sanitizeHostname(hostname), nil
}

// StaticIdentity is a fixed Identity, used where deterministic names are needed.
type StaticIdentity struct {
	PID  int
	Host string
}

// Pid returns the configured process id.
func (s StaticIdentity) Pid() int {
	return s.PID
}

// Hostname returns the configured host name, sanitized.
func (s StaticIdentity) Hostname() (string, error) {
	return sanitizeHostname(s.Host), nil
}

// DefaultRetryInterval is how long a delivery waits before recomputing a
// staging name that collided with an existing file.
const DefaultRetryInterval = 2 * time.Second

type options struct {
	identity      Identity
	now           func() time.Time
	sleep         func(time.Duration)
	retryInterval time.Duration
	lenientCount  bool
}

func defaultOptions() options {
	return options{
		identity:      SystemIdentity{},
		now:           time.Now,
		sleep:         time.Sleep,
		retryInterval: DefaultRetryInterval,
	}
}

// Option configures a Maildir.
type Option func(*options)

// WithIdentity sets the process/host identity used to name deliveries.
func WithIdentity(id Identity) Option {
	return func(o *options) {
		if id != nil {
			o.identity = id
		}
	}
}

// WithClock sets the wall-clock source used to name deliveries.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSleep sets the function used to wait between staging-name attempts.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *options) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithRetryInterval sets the wait between staging-name attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryInterval = d
		}
	}
}

// WithLenientCount makes CountNew and CountCur report zero instead of an
// error when the subdirectory is missing or unreadable.
func WithLenientCount() Option {
	return func(o *options) {
		o.lenientCount = true
	}
}
