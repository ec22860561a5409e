package bridge

import (
	"sync"

	ncerr "sersniff/internal/errors"
	"sersniff/internal/serialport"
)

// fakePort is an in-memory serialport.Port.  Each injected chunk is
// returned by exactly one ReadAvailable call.
type fakePort struct {
	name string

	mu       sync.Mutex
	rx       [][]byte
	tx       []byte
	writes   int
	pollErr  error
	writeErr error
	closes   int
}

func newFakePort(name string) *fakePort { return &fakePort{name: name} }

func (p *fakePort) Endpoint() string { return p.name }

func (p *fakePort) BytesAvailable() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closes > 0 {
		return 0, ncerr.Wrap(ncerr.OpPoll, p.name, ncerr.ErrHandleClosed)
	}
	if p.pollErr != nil {
		return 0, ncerr.Wrap(ncerr.OpPoll, p.name, p.pollErr)
	}
	if len(p.rx) == 0 {
		return 0, nil
	}
	return len(p.rx[0]), nil
}

func (p *fakePort) ReadAvailable() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rx) == 0 {
		return nil, nil
	}
	chunk := p.rx[0]
	p.rx = p.rx[1:]
	return chunk, nil
}

func (p *fakePort) Write(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closes > 0 {
		return ncerr.Wrap(ncerr.OpWrite, p.name, ncerr.ErrHandleClosed)
	}
	if p.writeErr != nil {
		return ncerr.Wrap(ncerr.OpWrite, p.name, p.writeErr)
	}
	p.tx = append(p.tx, b...)
	p.writes++
	return nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return nil
}

func (p *fakePort) inject(chunks ...[]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range chunks {
		p.rx = append(p.rx, append([]byte(nil), c...))
	}
}

func (p *fakePort) written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.tx...)
}

func (p *fakePort) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func (p *fakePort) setPollErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollErr = err
}

func (p *fakePort) setWriteErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// fakeOpener hands out pre-built ports by endpoint name and records
// every open attempt.
type fakeOpener struct {
	mu     sync.Mutex
	ports  map[string]*fakePort
	fail   map[string]error
	opened []string
}

func newFakeOpener(ports ...*fakePort) *fakeOpener {
	o := &fakeOpener{ports: map[string]*fakePort{}, fail: map[string]error{}}
	for _, p := range ports {
		o.ports[p.name] = p
	}
	return o
}

func (o *fakeOpener) Open(endpoint string, baud int) (serialport.Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, endpoint)
	if err := o.fail[endpoint]; err != nil {
		return nil, err
	}
	p, ok := o.ports[endpoint]
	if !ok {
		return nil, ncerr.Wrap(ncerr.OpOpen, endpoint, ncerr.New("no such device"))
	}
	return p, nil
}

func (o *fakeOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}
