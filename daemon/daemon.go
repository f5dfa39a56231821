// Package daemon runs the long lived parts of the GPIO driver (interrupt pumps, the counter
// application, the diagnostics server) and stops all of them when one fails.
package daemon

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrorClosed = errors.New("The daemon was closed")
)

// Service has a blocking Run method and a Close method that makes Run return
type Service interface {
	Run() error
	Close() error
}

type namedService struct {
	name    string
	service Service
	done    chan (struct{})
}

// Daemon runs a set of services
type Daemon struct {
	Logger *logrus.Entry

	sync.Mutex
	services  []*namedService
	started   bool
	closed    bool
	closeChan chan (struct{})
}

func (d *Daemon) getCloseChan() chan (struct{}) {
	if d.closeChan == nil {
		d.closeChan = make(chan (struct{}))
	}
	return d.closeChan
}

// Add registers a service. Services are started in the order they were added and closed
// in reverse order.
func (d *Daemon) Add(name string, service Service) {
	d.Lock()
	defer d.Unlock()

	d.services = append(d.services, &namedService{
		name:    name,
		service: service,
		done:    make(chan (struct{})),
	})
}

// Run starts all services and waits for them to return. If one of them returns an error
// the others are closed and that error is returned.
func (d *Daemon) Run() error {
	d.Lock()
	if d.closed {
		d.Unlock()
		return ErrorClosed
	}
	d.started = true
	services := d.services
	closeChan := d.getCloseChan()
	d.Unlock()

	var wg sync.WaitGroup
	var resultMutex sync.Mutex
	var result error

	for _, s := range services {
		wg.Add(1)
		d.Logger.Debugf("Starting %s", s.name)

		go func(s *namedService) {
			defer wg.Done()
			defer close(s.done)

			err := s.service.Run()
			if err != nil {
				d.Logger.WithError(err).Errorf("%s failed", s.name)

				resultMutex.Lock()
				if result == nil {
					result = err
				}
				resultMutex.Unlock()

				/* Close waits for this goroutine to finish */
				go d.Close()
			} else {
				d.Logger.Debugf("%s stopped", s.name)
			}
		}(s)
	}

	wg.Wait()

	select {
	case <-closeChan:
		if result == nil {
			result = ErrorClosed
		}
	default:
	}

	return result
}

// Close closes all services in reverse order and waits for each Run to return before
// closing the next one.
func (d *Daemon) Close() error {
	d.Lock()
	if d.closed {
		d.Unlock()
		return ErrorClosed
	}
	d.closed = true
	close(d.getCloseChan())
	started := d.started
	services := d.services
	d.Unlock()

	var err error
	for i := len(services) - 1; i >= 0; i-- {
		s := services[i]
		err2 := s.service.Close()
		if err == nil {
			err = err2
		}

		if !started {
			continue
		}

		select {
		case <-s.done:
		case <-time.After(5 * time.Second):
			d.Logger.Warnf("%s did not stop in time", s.name)
		}
	}

	return err
}

// HandleSIGTERM closes the daemon on SIGTERM or ^C. A second signal exits immediately.
func (d *Daemon) HandleSIGTERM() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		go func() {
			select {
			case <-c:
				d.Logger.Warn("Pressed ^C a second time, quitting right away.")
			case <-time.After(10 * time.Second):
				d.Logger.Warn("Timeout during shutdown, quitting with dirty state.")
			}
			os.Exit(1)
		}()
		d.Close()
	}()
}
