package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"bgv-dashboard/internal/client"
	"bgv-dashboard/internal/util"
)

// Actions recorded by the dashboard itself, mirroring the agent audit
// trail the backend keeps for verification requests.
const (
	ActionUserLogin          = "user_login"
	ActionUserLogout         = "user_logout"
	ActionSessionEvicted     = "session_evicted"
	ActionResumeUploaded     = "resume_uploaded"
	ActionDocumentsSubmitted = "documents_submitted"
)

// Event is one audit record published to Kafka.
type Event struct {
	Action    string            `json:"action"`
	UserEmail string            `json:"user_email,omitempty"`
	UserRole  string            `json:"user_role,omitempty"`
	RequestID int               `json:"request_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Publisher writes audit events best-effort. A nil Publisher or one
// built without a producer drops everything silently, so call sites
// never branch on whether auditing is configured.
type Publisher struct {
	producer *client.KafkaProducer
	logger   *zap.Logger
}

func NewPublisher(producer *client.KafkaProducer, logger *zap.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// Publish sends one event. Failures are logged and swallowed: auditing
// must never break a user-facing flow.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil || p.producer == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode audit event", util.ErrorField(err))
		return
	}

	// Bounded so a slow broker cannot stall the request handler.
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.producer.ProduceMessage(ctx, []byte(event.Action), payload, nil); err != nil {
		p.logger.Warn("failed to publish audit event",
			util.String("action", event.Action),
			util.ErrorField(err),
		)
	}
}
