// Package alerts raises operator notices with a per-key cooldown so a
// flapping dependency doesn't flood the channel.
package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/bowerhall/bubble/internal/logger"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarn:
		return "warn"
	default:
		return "info"
	}
}

type NotifyFunc func(message string)

type Alerter struct {
	mu        sync.Mutex
	notify    NotifyFunc
	cooldowns map[string]time.Time
	cooldown  time.Duration
	now       func() time.Time
}

// New returns an Alerter. A nil notify logs the alert instead.
func New(notify NotifyFunc, cooldown time.Duration) *Alerter {
	if notify == nil {
		notify = func(message string) { logger.Warn("alert", "text", message) }
	}
	return &Alerter{
		notify:    notify,
		cooldowns: make(map[string]time.Time),
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Alert reports whether the notice was sent or suppressed by cooldown.
func (a *Alerter) Alert(severity Severity, component, message string, err error) bool {
	if a == nil {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := component + ":" + message

	if lastSent, ok := a.cooldowns[key]; ok && a.now().Sub(lastSent) < a.cooldown {
		logger.Debug("alert suppressed (cooldown)", "component", component, "message", message)
		return false
	}

	text := fmt.Sprintf("[%s] %s: %s", severity, component, message)
	if err != nil {
		text += fmt.Sprintf(" (%v)", err)
	}

	a.notify(text)
	a.cooldowns[key] = a.now()
	logger.Info("alert sent", "component", component, "severity", severity.String())

	return true
}

func (a *Alerter) Critical(component, message string, err error) bool {
	return a.Alert(SeverityCritical, component, message, err)
}

func (a *Alerter) Warn(component, message string, err error) bool {
	return a.Alert(SeverityWarn, component, message, err)
}
