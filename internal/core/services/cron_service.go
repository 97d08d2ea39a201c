package services

import (
	"context"
	"log"
	"time"

	"barangay-services/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// SweepSchedule is how often expired credentials are cleaned up
const SweepSchedule = "@every 1h"

// CronService runs background maintenance jobs
type CronService struct {
	tokens      *TokenService
	refreshRepo repositories.RefreshTokenRepository
	cron        *cron.Cron
}

// NewCronService creates a new cron service
func NewCronService(tokens *TokenService, refreshRepo repositories.RefreshTokenRepository) *CronService {
	return &CronService{
		tokens:      tokens,
		refreshRepo: refreshRepo,
		cron:        cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
}

// Start schedules the jobs and runs one sweep immediately
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(SweepSchedule, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("🚀 CronService started (sweep %s)", SweepSchedule)

	go s.Sweep()
	return nil
}

// Stop waits for running jobs to finish
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 CronService stopped")
}

// Sweep deletes unverified accounts whose verification token expired and
// purges expired refresh tokens
func (s *CronService) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.tokens.SweepExpiredUnverified(ctx); err != nil {
		log.Printf("❌ Unverified account sweep failed: %v", err)
	}

	if n, err := s.refreshRepo.DeleteExpired(ctx, s.tokens.Now()); err != nil {
		log.Printf("❌ Refresh token cleanup failed: %v", err)
	} else if n > 0 {
		log.Printf("🧹 Removed %d expired refresh token(s)", n)
	}
}
