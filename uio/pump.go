package uio

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Handler services an interrupt line
type Handler interface {
	HandleInterrupt(line int) error
}

// Events is the interrupt side of a UIO device
type Events interface {
	Wait() (uint32, error)
	Unmask() error
	Close() error
}

// Pump forwards the interrupts of one UIO device to a Handler. Run blocks until Close is
// called or the device fails.
type Pump struct {
	Events  Events
	Handler Handler
	Line    int
	Logger  *logrus.Entry

	sync.Mutex
	closed bool
	last   uint32
}

func (p *Pump) isClosed() bool {
	p.Lock()
	defer p.Unlock()

	return p.closed
}

// Run implements the wait, handle, unmask loop
func (p *Pump) Run() error {
	if err := p.Events.Unmask(); err != nil {
		return err
	}

	for {
		count, err := p.Events.Wait()
		if err != nil {
			if p.isClosed() {
				return nil
			}
			return err
		}

		p.Lock()
		if p.last != 0 && count-p.last > 1 {
			p.Logger.Warnf("Line %d: %d interrupts coalesced", p.Line, count-p.last-1)
		}
		p.last = count
		p.Unlock()

		err = p.Handler.HandleInterrupt(p.Line)
		if err != nil {
			p.Logger.WithError(err).Warnf("Line %d: interrupt %d dropped", p.Line, count)
		} else {
			p.Logger.Debugf("Line %d: interrupt %d handled", p.Line, count)
		}

		if err := p.Events.Unmask(); err != nil {
			if p.isClosed() {
				return nil
			}
			return err
		}
	}
}

// Close stops Run
func (p *Pump) Close() error {
	p.Lock()
	if p.closed {
		p.Unlock()
		return nil
	}
	p.closed = true
	p.Unlock()

	return p.Events.Close()
}
