package notifier

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/storesim/pkg/config"
	"github.com/abgdnv/storesim/pkg/messaging/events"
	pnats "github.com/abgdnv/storesim/pkg/nats"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"golang.org/x/sync/errgroup"
)

// skipIntegrationTests is the environment variable that controls whether to skip integration tests.
const skipIntegrationTests = "STORESIM_SKIP_INTEGRATION_TESTS"
const natsImg = "nats:2.11.6-alpine"

// recordingSender keeps every confirmation it was given.
type recordingSender struct {
	mu   sync.Mutex
	sent []Confirmation
}

func (r *recordingSender) Send(_ context.Context, c Confirmation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, c)
	return nil
}

func (r *recordingSender) orderIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sent))
	for _, c := range r.sent {
		ids = append(ids, c.OrderID)
	}
	return ids
}

// NotifierSuite runs the consumer against a real JetStream server.
type NotifierSuite struct {
	suite.Suite
	ctx           context.Context
	logger        *slog.Logger
	natsContainer *nats.NATSContainer
	nc            *natsgo.Conn
	js            jetstream.JetStream
}

func (s *NotifierSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.natsContainer, err = nats.Run(s.ctx, natsImg)
	require.NoError(s.T(), err, "Failed to run NATS container")

	natsURL, err := s.natsContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err)
	s.nc, err = pnats.NewClient(natsURL, 5*time.Second)
	require.NoError(s.T(), err, "Failed to connect to NATS")

	s.js, err = pnats.NewJetStreamContext(s.nc)
	require.NoError(s.T(), err, "Failed to get JetStream context")
}

func (s *NotifierSuite) TearDownSuite() {
	s.nc.Close()
	if err := testcontainers.TerminateContainer(s.natsContainer); err != nil {
		s.logger.Error("Failed to terminate NATS container", "error", err)
	}
}

func TestNotifierIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(NotifierSuite))
}

func (s *NotifierSuite) TestPublishedOrdersAreConfirmed() {
	// given
	streamName := "STREAM-" + uuid.NewString()
	subject := "orders." + uuid.NewString()
	stream, err := pnats.EnsureStream(s.ctx, s.js, streamName, subject)
	require.NoError(s.T(), err)

	cfg := config.SubscriberConfig{
		Stream:   streamName,
		Subject:  subject,
		Consumer: "CONSUMER-" + uuid.NewString(),
		Batch:    5,
		Timeout:  200 * time.Millisecond,
		Interval: 200 * time.Millisecond,
		Workers:  2,
	}
	sender := &recordingSender{}
	testCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	g, gCtx := errgroup.WithContext(testCtx)
	s.T().Cleanup(func() {
		cancel()
		require.ErrorIs(s.T(), g.Wait(), context.Canceled)
	})
	g.Go(func() error {
		return Start(gCtx, s.js, cfg, sender, s.logger)
	})

	publisher := pnats.NewJetStreamPublisher(s.js)
	event := events.OrderPlacedEvent{
		OrderID:   "ORD-" + uuid.NewString()[:12],
		Username:  "alice",
		Total:     decimal.RequireFromString("49.99"),
		LineCount: 1,
		ItemCount: 1,
		PlacedAt:  time.Now().UTC(),
	}

	// when
	_, err = s.js.Publish(s.ctx, subject, []byte("invalid payload"))
	require.NoError(s.T(), err)
	require.NoError(s.T(), publisher.Publish(s.ctx, subjectOverride{OrderPlacedEvent: event, subject: subject}))

	// then
	require.Eventually(s.T(), func() bool {
		ids := sender.orderIDs()
		return len(ids) == 1 && ids[0] == event.OrderID
	}, 5*time.Second, 100*time.Millisecond, "confirmation not sent")
	require.Eventually(s.T(), func() bool {
		consumer, err := stream.Consumer(s.ctx, cfg.Consumer)
		if err != nil {
			return false
		}
		info, err := consumer.Info(s.ctx)
		return err == nil && info.NumPending == 0 && info.NumAckPending == 0
	}, 5*time.Second, 100*time.Millisecond, "consumer still holds unacknowledged messages")
}

// subjectOverride routes an event to a per-test subject.
type subjectOverride struct {
	events.OrderPlacedEvent
	subject string
}

func (o subjectOverride) Subject() string {
	return o.subject
}
