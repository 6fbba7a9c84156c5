package service

import (
	"log/slog"
	"time"
)

// DefaultHousekeepingInterval is how often in-memory state is swept.
const DefaultHousekeepingInterval = 60 * time.Second

// HousekeepingService periodically removes expired codes, transactions,
// challenges and idle sessions so the in-memory stores stay bounded.
type HousekeepingService struct {
	Sessions     *SessionStore
	Transactions *TransactionStore
	Challenges   *ChallengeStore
	Metrics      *Metrics
	Logger       *slog.Logger
	Interval     time.Duration
	Now          func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the sweeper. A non-positive interval falls
// back to DefaultHousekeepingInterval.
func NewHousekeepingService(
	sessions *SessionStore,
	txns *TransactionStore,
	challenges *ChallengeStore,
	metrics *Metrics,
	logger *slog.Logger,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}

	return &HousekeepingService{
		Sessions:     sessions,
		Transactions: txns,
		Challenges:   challenges,
		Metrics:      metrics,
		Logger:       logger,
		Interval:     interval,
		Now:          time.Now,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start runs the sweeper in the background until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one pass over every store.
func (s *HousekeepingService) Sweep() {
	now := s.Now()

	expired := s.Sessions.Sweep(now)
	for _, id := range expired {
		s.Transactions.DestroySession(id)
		s.Challenges.Cleanup(id)
	}
	codes, txns := s.Transactions.Sweep(now)
	challenges := s.Challenges.Sweep(now)

	if s.Metrics != nil {
		s.Metrics.HousekeepingRemoved.WithLabelValues("session").Add(float64(len(expired)))
		s.Metrics.HousekeepingRemoved.WithLabelValues("code").Add(float64(codes))
		s.Metrics.HousekeepingRemoved.WithLabelValues("transaction").Add(float64(txns))
		s.Metrics.HousekeepingRemoved.WithLabelValues("challenge").Add(float64(challenges))
		s.Metrics.ActiveSessions.Set(float64(s.Sessions.Len()))
	}

	s.Logger.Debug("housekeeping sweep completed",
		"sessions", len(expired),
		"codes", codes,
		"transactions", txns,
		"challenges", challenges,
	)
}
