package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"barangay-services/internal/adapters/mail/mocks"
	"barangay-services/internal/adapters/persistence/repositories"
	"barangay-services/internal/config"
	"barangay-services/internal/pkg/metrics"
	"barangay-services/internal/testutil"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

var (
	verifyLinkRe = regexp.MustCompile(`verify-email/([0-9a-f]{64})`)
	resetLinkRe  = regexp.MustCompile(`reset-password/([0-9a-f]{64})`)
)

// ServiceSuite wires every service against an in-memory database
type ServiceSuite struct {
	suite.Suite

	ctx    context.Context
	db     *gorm.DB
	region testutil.Region
	now    time.Time

	ctrl       *gomock.Controller
	mailer     *mocks.MockMailer
	metrics    *metrics.Metrics
	publisher  *recordingPublisher
	cfg        *config.Config
	userRepo   repositories.UserRepository
	notifRepo  repositories.NotificationRepository
	inboxRepo  repositories.InboxRepository
	tokens     *TokenService
	auth       *AuthService
	users      *UserService
	certs      *CertificateService
	notifs     *NotificationService
	inbox      *InboxService
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T())
	s.region = testutil.SeedRegion(s.T(), s.db)
	s.now = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	s.ctrl = gomock.NewController(s.T())
	s.mailer = mocks.NewMockMailer(s.ctrl)
	s.metrics = metrics.New()
	s.publisher = &recordingPublisher{}
	s.cfg = &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
		App: config.URLConfig{
			PublicURL:   "http://api.test/api/v1/auth",
			FrontendURL: "http://app.test",
		},
	}

	s.userRepo = repositories.NewUserRepository(s.db)
	refreshRepo := repositories.NewRefreshTokenRepository(s.db)
	regionRepo := repositories.NewRegionRepository(s.db)
	certRepo := repositories.NewCertificateRepository(s.db)
	s.notifRepo = repositories.NewNotificationRepository(s.db)
	s.inboxRepo = repositories.NewInboxRepository(s.db)

	s.tokens = NewTokenService(s.userRepo, s.metrics)
	s.tokens.SetClock(func() time.Time { return s.now })
	s.auth = NewAuthService(s.db, s.userRepo, refreshRepo, regionRepo, s.tokens, s.mailer, s.metrics, s.cfg)
	s.users = NewUserService(s.userRepo, refreshRepo, regionRepo)
	s.certs = NewCertificateService(s.db, certRepo, s.userRepo, regionRepo, s.notifRepo, s.inboxRepo, s.publisher, nil, s.metrics)
	s.notifs = NewNotificationService(s.notifRepo, s.metrics)
	s.inbox = NewInboxService(s.inboxRepo)
}

// advance moves the service clock forward
func (s *ServiceSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

// expectMail captures the next message sent to addr
func (s *ServiceSuite) expectMail(addr string, re *regexp.Regexp) *string {
	token := new(string)
	s.mailer.EXPECT().
		Send(gomock.Any(), addr, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, html string) error {
			m := re.FindStringSubmatch(html)
			s.Require().Len(m, 2, "link not found in mail body")
			*token = m[1]
			return nil
		})
	return token
}

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	queues []string
}

func (p *recordingPublisher) Publish(_ context.Context, queue string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queues = append(p.queues, queue)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.queues...)
}
