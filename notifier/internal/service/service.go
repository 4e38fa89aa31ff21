package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	cb "github.com/astralibs/lending-service/pkg/circuit_breaker"
	"github.com/astralibs/lending-service/pkg/kafka"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	ChannelLibrarians = "librarians"
	ChannelBorrower   = "borrower"
)

// Notification is the payload posted to a webhook endpoint.
type Notification struct {
	Channel string `json:"channel"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message"`
}

type Webhook struct {
	URL     string
	Channel string
}

type Service struct {
	log      *zap.Logger
	client   *http.Client
	breakers map[string]cb.CircuitBreaker
	hooks    []Webhook
}

func NewService(hooks []Webhook, log *zap.Logger) *Service {
	breakers := make(map[string]cb.CircuitBreaker, len(hooks))
	for _, h := range hooks {
		breakers[h.Channel] = cb.New(10, time.Second*30, 0.5, 3)
	}
	return &Service{
		log: log,
		client: &http.Client{
			Timeout: time.Minute,
		},
		breakers: breakers,
		hooks:    hooks,
	}
}

// Dispatch fans a loan event out to the interested channels. Delivery
// is best-effort; a failed endpoint trips its circuit breaker and the
// event is not redelivered by this service.
func (s *Service) Dispatch(ctx context.Context, event kafka.LoanEvent) error {
	notes := s.route(event)
	if len(notes) == 0 {
		s.log.Warn("unknown event type", zap.String("type", event.Type))
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, n := range notes {
		n := n
		g.Go(func() error {
			return s.deliver(ctx, n)
		})
	}
	return g.Wait()
}

func (s *Service) route(event kafka.LoanEvent) []Notification {
	switch event.Type {
	case kafka.EventLoanCreated:
		return []Notification{{
			Channel: ChannelLibrarians,
			Message: fmt.Sprintf("%s checked out %q", event.Username, event.BookTitle),
		}}
	case kafka.EventLoanReturned:
		return []Notification{
			{
				Channel: ChannelLibrarians,
				Message: fmt.Sprintf("%s returned %q", event.Username, event.BookTitle),
			},
			{
				Channel: ChannelBorrower,
				Email:   event.Email,
				Message: fmt.Sprintf("thanks for returning %q", event.BookTitle),
			},
		}
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, n Notification) error {
	hook, ok := s.hook(n.Channel)
	if !ok || hook.URL == "" {
		return nil
	}

	err := s.breakers[n.Channel].Call(func() error {
		return s.post(ctx, hook.URL, n)
	})
	if err != nil {
		s.log.Error("deliver", zap.String("channel", n.Channel), zap.Error(err))
	}
	return err
}

func (s *Service) post(ctx context.Context, url string, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("webhook %s: status %d", url, resp.StatusCode)
	}
	return nil
}

func (s *Service) hook(channel string) (Webhook, bool) {
	for _, h := range s.hooks {
		if h.Channel == channel {
			return h, true
		}
	}
	return Webhook{}, false
}
