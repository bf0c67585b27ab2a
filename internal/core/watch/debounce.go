package watch

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Debouncer coalesces bursts of folder change notifications into one
// callback, resetting its timer on every push.
type Debouncer struct {
	delay     time.Duration
	delayFunc func(count int) time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	queued map[string]struct{}
	onFire func(folders []string)
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Debouncer{
		delay:  delay,
		queued: map[string]struct{}{},
	}
}

// SetDelayFunc makes the delay depend on how many folders are queued,
// so a mass import fires once instead of per file.
func (d *Debouncer) SetDelayFunc(fn func(count int) time.Duration) {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.delayFunc = fn
	d.mu.Unlock()
}

func (d *Debouncer) DelayFor(count int) time.Duration {
	if d == nil {
		return 0
	}
	if d.delayFunc == nil {
		return d.delay
	}
	delay := d.delayFunc(count)
	if delay <= 0 {
		return d.delay
	}
	return delay
}

func (d *Debouncer) OnFire(fn func(folders []string)) {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.onFire = fn
	d.mu.Unlock()
}

func (d *Debouncer) Push(folder string) {
	if d == nil {
		return
	}
	folder = strings.TrimSpace(folder)

	d.mu.Lock()
	d.queued[folder] = struct{}{}
	delay := d.DelayFor(len(d.queued))
	if d.timer != nil {
		_ = d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, d.fire)
	d.mu.Unlock()
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	queued := d.queued
	d.queued = map[string]struct{}{}
	fn := d.onFire
	d.mu.Unlock()

	if fn == nil || len(queued) == 0 {
		return
	}

	folders := make([]string, 0, len(queued))
	for p := range queued {
		folders = append(folders, p)
	}
	sort.Strings(folders)
	fn(folders)
}
