package service

import (
	"sync"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/pkg/cryptox"
)

// DefaultChallengeTimeout bounds how long a ceremony challenge stays valid.
const DefaultChallengeTimeout = 300 * time.Second

// ChallengeStore keeps one registration and one authentication challenge per
// ceremony context (the browser session id). Challenges are single use.
type ChallengeStore struct {
	Timeout time.Duration
	Now     func() time.Time

	mu    sync.Mutex
	slots map[string]map[domain.ChallengeKind]domain.Challenge
}

func NewChallengeStore(timeout time.Duration) *ChallengeStore {
	if timeout <= 0 {
		timeout = DefaultChallengeTimeout
	}
	return &ChallengeStore{
		Timeout: timeout,
		Now:     time.Now,
		slots:   make(map[string]map[domain.ChallengeKind]domain.Challenge),
	}
}

// Generate stores a fresh 256-bit challenge in the kind slot of contextID,
// replacing any previous one.
func (s *ChallengeStore) Generate(contextID string, kind domain.ChallengeKind, externalTxnID, userHandle string) (domain.Challenge, error) {
	value, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.Challenge{}, err
	}

	c := domain.Challenge{
		Value:         value,
		ExpiresAt:     s.Now().Add(s.Timeout),
		ExternalTxnID: externalTxnID,
		UserHandle:    userHandle,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[contextID]
	if !ok {
		slot = make(map[domain.ChallengeKind]domain.Challenge, 2)
		s.slots[contextID] = slot
	}
	slot[kind] = c
	return c, nil
}

// ValidateAndConsume checks value against the stored challenge and deletes
// it on success. Missing, mismatched and expired challenges all report
// ErrChallengeExpired. A mismatch leaves the stored challenge in place.
func (s *ChallengeStore) ValidateAndConsume(contextID string, kind domain.ChallengeKind, value string) (domain.Challenge, error) {
	now := s.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.slots[contextID]
	c, ok := slot[kind]
	if !ok {
		return domain.Challenge{}, ErrChallengeExpired
	}
	if c.Expired(now) {
		s.remove(contextID, kind)
		return domain.Challenge{}, ErrChallengeExpired
	}
	if !cryptox.EqualStrings(c.Value, value) {
		return domain.Challenge{}, ErrChallengeExpired
	}

	s.remove(contextID, kind)
	return c, nil
}

// Attach stores ceremony data on the pending challenge matching value.
func (s *ChallengeStore) Attach(contextID string, kind domain.ChallengeKind, value string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.slots[contextID][kind]
	if !ok || !cryptox.EqualStrings(c.Value, value) {
		return ErrChallengeExpired
	}
	c.CeremonyData = data
	s.slots[contextID][kind] = c
	return nil
}

// Cleanup drops every challenge of contextID.
func (s *ChallengeStore) Cleanup(contextID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, contextID)
}

// Sweep removes expired challenges and returns how many were dropped.
func (s *ChallengeStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, slot := range s.slots {
		for kind, c := range slot {
			if c.Expired(now) {
				delete(slot, kind)
				removed++
			}
		}
		if len(slot) == 0 {
			delete(s.slots, id)
		}
	}
	return removed
}

// remove must be called with mu held.
func (s *ChallengeStore) remove(contextID string, kind domain.ChallengeKind) {
	slot := s.slots[contextID]
	delete(slot, kind)
	if len(slot) == 0 {
		delete(s.slots, contextID)
	}
}
