package counter

import (
	"bytes"
	"encoding/gob"
	"io/ioutil"
	"os"
	"sync"
	"time"
)

// RetrySaveInterval is the delay between save attempts if the previous one failed.
const RetrySaveInterval = 2 * time.Second

// State is what survives a restart
type State struct {
	Count  byte
	Events uint64
}

// statePersist saves a State to a gob file, at most once per interval unless forced
type statePersist struct {
	sync.Mutex

	filename     string
	saveInterval time.Duration
	nextSave     time.Time

	buffer bytes.Buffer
}

// load restores target. A missing file leaves target unchanged and is not an error.
func (p *statePersist) load(target *State) error {
	p.Lock()
	defer p.Unlock()

	if p.filename == "" {
		return nil
	}

	data, err := ioutil.ReadFile(p.filename)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}

	p.buffer.Reset()
	p.buffer.Write(data)
	return gob.NewDecoder(&p.buffer).Decode(target)
}

func (p *statePersist) save(state State) error {
	if p.filename == "" {
		return nil
	}

	tmpName := p.filename + ".tmp"

	p.buffer.Reset()
	err := gob.NewEncoder(&p.buffer).Encode(state)
	if err == nil {
		err = ioutil.WriteFile(tmpName, p.buffer.Bytes(), 0600)
	}
	if err == nil {
		err = os.Rename(tmpName, p.filename)
	}

	if err == nil {
		p.nextSave = time.Now().Add(p.saveInterval)
	} else {
		p.nextSave = time.Now().Add(RetrySaveInterval)
	}

	return err
}

// saveNow writes state regardless of the interval
func (p *statePersist) saveNow(state State) error {
	p.Lock()
	defer p.Unlock()

	return p.save(state)
}

// saveConditional writes state if the interval since the last save has passed
func (p *statePersist) saveConditional(state State) error {
	p.Lock()
	defer p.Unlock()

	if time.Now().After(p.nextSave) {
		return p.save(state)
	}
	return nil
}
