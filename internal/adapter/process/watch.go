package process

import (
	"sync/atomic"
	"time"
)

const memoryPollInterval = 25 * time.Millisecond

// memoryWatch samples the resident set of a process group and kills the group once it crosses the cap
type memoryWatch struct {
	exceeded atomic.Bool
	peakKB   atomic.Int64
	stop     chan struct{}
	done     chan struct{}
}

func watchMemory(pgid int, capBytes uint64) *memoryWatch {
	w := &memoryWatch{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(memoryPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
			}
			kb, err := groupRSSKB(pgid)
			if err != nil {
				return
			}
			if kb > w.peakKB.Load() {
				w.peakKB.Store(kb)
			}
			if uint64(kb)*1024 > capBytes {
				w.exceeded.Store(true)
				_ = killGroup(pgid)
				return
			}
		}
	}()
	return w
}

// Stop ends sampling and waits for the sampler to exit
func (w *memoryWatch) Stop() {
	close(w.stop)
	<-w.done
}

func (w *memoryWatch) Exceeded() bool {
	return w.exceeded.Load()
}

func (w *memoryWatch) PeakKB() int64 {
	return w.peakKB.Load()
}
