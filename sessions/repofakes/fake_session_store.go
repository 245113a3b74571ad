package fakesessionstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-prayer-journal/internal/errors"
	"github.com/jrsteele09/go-prayer-journal/sessions"
)

var _ sessions.Store = (*FakeSessionStore)(nil)

// FakeSessionStore keeps the serialized session in memory. Several services can share one
// instance to model tabs sharing the same durable slot.
type FakeSessionStore struct {
	slots map[string][]byte
	loads int
	lock  sync.RWMutex
}

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{
		slots: make(map[string][]byte),
	}
}

func (ss *FakeSessionStore) Load(_ context.Context) (*sessions.Session, error) {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	ss.loads++
	data, ok := ss.slots[sessions.Key]
	if !ok {
		return nil, errors.ErrNoSession
	}
	return sessions.Decode(data)
}

func (ss *FakeSessionStore) Save(_ context.Context, session *sessions.Session) error {
	data, err := sessions.Encode(session)
	if err != nil {
		return err
	}

	ss.lock.Lock()
	defer ss.lock.Unlock()
	ss.slots[sessions.Key] = data
	return nil
}

func (ss *FakeSessionStore) Remove(_ context.Context) error {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	delete(ss.slots, sessions.Key)
	return nil
}

// Raw returns the serialized slot contents.
func (ss *FakeSessionStore) Raw() ([]byte, bool) {
	ss.lock.RLock()
	defer ss.lock.RUnlock()
	data, ok := ss.slots[sessions.Key]
	return data, ok
}

// SetRaw overwrites the slot with arbitrary bytes.
func (ss *FakeSessionStore) SetRaw(data []byte) {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	ss.slots[sessions.Key] = data
}

// Loads returns how many times Load has been called.
func (ss *FakeSessionStore) Loads() int {
	ss.lock.RLock()
	defer ss.lock.RUnlock()
	return ss.loads
}
