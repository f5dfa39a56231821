// Package counter is the switch to LED demo application: every time the switch device
// reports new data its status byte is added to a counter that is shown on the LEDs.
package counter

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/BertoldVdb/zybo-gpio/gpiodrv"
	"github.com/sirupsen/logrus"
)

// Source is the blocking input side, normally a gpiodrv.Device
type Source interface {
	ReadContext(ctx context.Context, p []byte) (int, error)
}

// App connects a switch device to a LED device
type App struct {
	Switches Source
	LEDs     io.Writer
	Logger   *logrus.Entry

	// StateFile keeps the counter across restarts if not empty
	StateFile    string
	SaveInterval time.Duration

	sync.Mutex
	state   State
	persist *statePersist
	ctx     context.Context
	cancel  context.CancelFunc
}

func (a *App) init() {
	a.Lock()
	defer a.Unlock()

	if a.ctx == nil {
		a.ctx, a.cancel = context.WithCancel(context.Background())
		a.persist = &statePersist{filename: a.StateFile, saveInterval: a.SaveInterval}
	}
}

// State returns a copy of the current counter state
func (a *App) State() State {
	a.Lock()
	defer a.Unlock()

	return a.state
}

func (a *App) show(count byte) error {
	_, err := a.LEDs.Write([]byte{count})
	return err
}

// Run restores the counter and processes switch events until Close is called
func (a *App) Run() error {
	a.init()

	a.Lock()
	err := a.persist.load(&a.state)
	state := a.state
	a.Unlock()
	if err != nil {
		a.Logger.WithError(err).Warn("Could not restore counter, starting from zero")
	}

	if err := a.show(state.Count); err != nil {
		return err
	}

	buf := make([]byte, 1)
	for {
		_, err := a.Switches.ReadContext(a.ctx, buf)
		if err == gpiodrv.ErrorInterruptedWait && a.ctx.Err() != nil {
			return a.persist.saveNow(a.State())
		} else if err != nil {
			a.persist.saveNow(a.State())
			return err
		}

		a.Lock()
		a.state.Count += buf[0]
		a.state.Events++
		state = a.state
		a.Unlock()

		a.Logger.Debugf("Switches 0x%02x, counter 0x%02x", buf[0], state.Count)

		if err := a.show(state.Count); err != nil {
			return err
		}

		if err := a.persist.saveConditional(state); err != nil {
			a.Logger.WithError(err).Warn("Could not save counter")
		}
	}
}

// Close makes Run return
func (a *App) Close() error {
	a.init()
	a.cancel()
	return nil
}
