package session

import (
	"sync"
	"time"
)

type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
)

// Notice is a transient user-facing message.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// noticeSlot holds at most one notice. A new notice replaces the old one
// and each notice clears itself after its ttl.
type noticeSlot struct {
	mu      sync.Mutex
	current *Notice
	timer   *time.Timer
	gen     uint64
}

func (s *noticeSlot) set(n Notice, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.current = &n
	s.timer = time.AfterFunc(ttl, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// a newer notice owns the slot
		if s.gen == gen {
			s.current = nil
		}
	})
}

func (s *noticeSlot) get() (Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Notice{}, false
	}
	return *s.current, true
}

func (s *noticeSlot) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	s.current = nil
}
