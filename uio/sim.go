package uio

import (
	"errors"
	"sync"
	"time"

	"github.com/BertoldVdb/zybo-gpio/regfile"
)

var ErrorSimClosed = errors.New("Simulated device closed")

// SimEvents raises interrupts on a simulated register file at a fixed interval. Each event
// asserts Lines in IntStatus and presents the next Pattern value on DataIn.
type SimEvents struct {
	Regs     *regfile.Sim
	Interval time.Duration
	Lines    uint32
	Pattern  []uint32

	once   sync.Once
	stop   chan (struct{})
	count  uint32
	sync.Mutex
}

func (s *SimEvents) init() {
	s.once.Do(func() {
		s.stop = make(chan (struct{}))
	})
}

func (s *SimEvents) Wait() (uint32, error) {
	s.init()

	select {
	case <-s.stop:
		return 0, ErrorSimClosed
	case <-time.After(s.Interval):
	}

	s.Lock()
	defer s.Unlock()

	if len(s.Pattern) > 0 {
		s.Regs.SetInput(s.Pattern[int(s.count)%len(s.Pattern)])
	}
	s.Regs.Raise(s.Lines)
	s.count++
	return s.count, nil
}

// Unmask does nothing, simulated events are never lost
func (s *SimEvents) Unmask() error {
	return nil
}

func (s *SimEvents) Close() error {
	s.init()

	s.Lock()
	defer s.Unlock()

	select {
	case <-s.stop:
		return ErrorSimClosed
	default:
		close(s.stop)
	}
	return nil
}
