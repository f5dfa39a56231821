package daemon

import (
	"errors"
	"io/ioutil"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func check(t *testing.T, condition bool, reason ...interface{}) {
	if !condition {
		t.Error(reason...)
		t.FailNow()
	}
}

type order struct {
	sync.Mutex
	closed []string
}

func (o *order) add(name string) {
	o.Lock()
	defer o.Unlock()
	o.closed = append(o.closed, name)
}

type blockingService struct {
	name string
	log  *order
	c    chan (struct{})
	once sync.Once
	fail error
}

func newBlocking(name string, log *order) *blockingService {
	return &blockingService{name: name, log: log, c: make(chan (struct{}))}
}

func (b *blockingService) Run() error {
	if b.fail != nil {
		time.Sleep(20 * time.Millisecond)
		return b.fail
	}
	<-b.c
	return nil
}

func (b *blockingService) Close() error {
	b.once.Do(func() {
		b.log.add(b.name)
		close(b.c)
	})
	return nil
}

func newDaemon() *Daemon {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	return &Daemon{Logger: logrus.NewEntry(l)}
}

func TestCloseOrder(t *testing.T) {
	d := newDaemon()
	o := &order{}
	d.Add("pump", newBlocking("pump", o))
	d.Add("counter", newBlocking("counter", o))
	d.Add("diag", newBlocking("diag", o))

	done := make(chan (error), 1)
	go func() {
		done <- d.Run()
	}()

	time.Sleep(20 * time.Millisecond)
	check(t, d.Close() == nil, "Close failed")
	check(t, d.Close() == ErrorClosed, "Second close succeeded")

	select {
	case err := <-done:
		check(t, err == ErrorClosed, "Wrong result", err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	check(t, len(o.closed) == 3 && o.closed[0] == "diag" && o.closed[2] == "pump", "Wrong close order", o.closed)
	check(t, d.Run() == ErrorClosed, "Run after Close succeeded")
}

func TestFailureStopsAll(t *testing.T) {
	d := newDaemon()
	o := &order{}
	testError := errors.New("UIO device vanished")

	failing := newBlocking("pump", o)
	failing.fail = testError
	d.Add("counter", newBlocking("counter", o))
	d.Add("pump", failing)

	done := make(chan (error), 1)
	go func() {
		done <- d.Run()
	}()

	select {
	case err := <-done:
		check(t, err == testError, "Wrong result", err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	o.Lock()
	defer o.Unlock()
	check(t, len(o.closed) == 2, "Not all services closed", o.closed)
}

func TestCloseBeforeRun(t *testing.T) {
	d := newDaemon()
	o := &order{}
	d.Add("diag", newBlocking("diag", o))

	begin := time.Now()
	check(t, d.Close() == nil, "Close failed")
	check(t, time.Since(begin) < time.Second, "Close waited for services that never ran")
	check(t, d.Run() == ErrorClosed, "Run after Close succeeded")
}
