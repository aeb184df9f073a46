package assessment

import (
	"math"
	"sync"
	"time"
)

// TimeLevel is an advisory styling hint; it never changes behaviour.
type TimeLevel string

const (
	LevelNormal  TimeLevel = "normal"
	LevelCaution TimeLevel = "caution"
	LevelWarning TimeLevel = "warning"
)

const (
	CautionThreshold = 300
	WarningThreshold = 60
)

func LevelFor(remaining int) TimeLevel {
	switch {
	case remaining <= WarningThreshold:
		return LevelWarning
	case remaining <= CautionThreshold:
		return LevelCaution
	default:
		return LevelNormal
	}
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type systemTicker struct{ t *time.Ticker }

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

func newSystemTicker(d time.Duration) Ticker {
	return systemTicker{t: time.NewTicker(d)}
}

// Clock is the per-attempt countdown. Tick, Start and Stop must run on the owning
// orchestrator's event loop; the ticker goroutine only posts ticks to it.
type Clock struct {
	limited   bool
	total     int
	remaining int
	anchor    time.Time
	running   bool
	expired   bool

	newTicker TickerFactory
	post      func(func()) bool
	onTick    func(remaining int, level TimeLevel)
	onExpire  func()

	halt     chan struct{}
	haltOnce sync.Once
}

// newClock creates a countdown with remainingSeconds left. A non-positive limit
// with limited=false yields a disabled clock.
func newClock(limited bool, remainingSeconds int, newTicker TickerFactory, post func(func()) bool,
	onTick func(int, TimeLevel), onExpire func()) *Clock {
	if remainingSeconds < 0 {
		remainingSeconds = 0
	}
	if newTicker == nil {
		newTicker = newSystemTicker
	}
	return &Clock{
		limited:   limited,
		total:     remainingSeconds,
		remaining: remainingSeconds,
		newTicker: newTicker,
		post:      post,
		onTick:    onTick,
		onExpire:  onExpire,
		halt:      make(chan struct{}),
	}
}

func (c *Clock) Enabled() bool { return c != nil && c.limited }

func (c *Clock) Remaining() int {
	if c == nil {
		return 0
	}
	return c.remaining
}

func (c *Clock) Expired() bool { return c != nil && c.expired }

// Start emits the initial tick and begins counting from now.
func (c *Clock) Start(now time.Time) {
	if !c.Enabled() || c.running || c.expired {
		return
	}
	c.anchor = now
	c.running = true
	c.emit(c.remaining)
	if c.remaining == 0 {
		c.expire()
		return
	}
	go c.pump(c.newTicker(time.Second))
}

func (c *Clock) pump(t Ticker) {
	defer t.Stop()
	for {
		select {
		case <-c.halt:
			return
		case now := <-t.C():
			if !c.post(func() { c.Tick(now) }) {
				return
			}
		}
	}
}

// Tick recomputes the remaining time from the tick timestamp, so a delayed
// delivery does not slow the countdown down.
func (c *Clock) Tick(now time.Time) {
	if c == nil || !c.running {
		return
	}
	elapsed := int(math.Round(now.Sub(c.anchor).Seconds()))
	rem := c.total - elapsed
	if rem < 0 {
		rem = 0
	}
	if rem == c.remaining && rem > 0 {
		return
	}
	c.remaining = rem
	c.emit(rem)
	if rem == 0 {
		c.expire()
	}
}

func (c *Clock) emit(rem int) {
	if c.onTick != nil {
		c.onTick(rem, LevelFor(rem))
	}
}

func (c *Clock) expire() {
	if c.expired {
		return
	}
	c.expired = true
	c.Stop()
	if c.onExpire != nil {
		c.onExpire()
	}
}

// Stop is idempotent and safe on a nil or disabled clock.
func (c *Clock) Stop() {
	if c == nil {
		return
	}
	c.running = false
	c.haltOnce.Do(func() { close(c.halt) })
}
