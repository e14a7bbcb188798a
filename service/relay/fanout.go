package relay

import (
	"sync"

	"aeolus/logger"
)

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Fanout delivers one payload to many clients off the caller's goroutine.
// Workers pull jobs from a bounded queue; a client whose send queue is full
// simply misses the frame.
type Fanout struct {
	jobs     chan fanoutJob
	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{
		jobs: make(chan fanoutJob, queue),
		stop: make(chan struct{}),
	}
	f.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer f.wg.Done()
			for {
				select {
				case <-f.stop:
					return
				case job := <-f.jobs:
					for _, c := range job.conns {
						if !c.TrySend(job.payload) {
							logger.Debugf("fanout: dropped frame for slow conn %s", c.ID)
						}
					}
				}
			}
		}()
	}
	return f
}

// Broadcast enqueues one payload for many clients. After Close the job is
// dropped; during shutdown a late broadcast must not take the instance down.
func (f *Fanout) Broadcast(conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	select {
	case <-f.stop:
		logger.Debugf("fanout: dropped broadcast after close")
		return
	default:
	}
	select {
	case f.jobs <- fanoutJob{conns: conns, payload: payload}:
	case <-f.stop:
		logger.Debugf("fanout: dropped broadcast after close")
	}
}

func (f *Fanout) Close() {
	f.stopOnce.Do(func() { close(f.stop) })
	f.wg.Wait()
}
