package app

import (
	"sync"
	"time"
)

// Scheduler abstracts the two timers the runtime arms: the periodic countdown
// tick and the one-shot auto-advance. Both return an explicit cancel handle;
// the runtime cancels outstanding timers on every transition out of the
// in-progress phase so a stale callback can never touch a later session.
type Scheduler interface {
	Every(d time.Duration, fn func()) (stop func())
	After(d time.Duration, fn func()) (cancel func())
}

// tickerScheduler is the production Scheduler backed by time.Ticker and
// time.AfterFunc.
type tickerScheduler struct{}

func (tickerScheduler) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

func (tickerScheduler) After(d time.Duration, fn func()) func() {
	timer := time.AfterFunc(d, fn)
	return func() { timer.Stop() }
}
