package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/astralibs/lending-service/notifier/internal/service"
	"github.com/astralibs/lending-service/pkg/kafka"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type webhookRecorder struct {
	mu    sync.Mutex
	notes []service.Notification
	srv   *httptest.Server
}

func newWebhookRecorder(t *testing.T) *webhookRecorder {
	t.Helper()
	rec := &webhookRecorder{}
	rec.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n service.Notification
		require.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		rec.mu.Lock()
		rec.notes = append(rec.notes, n)
		rec.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(rec.srv.Close)
	return rec
}

func (rec *webhookRecorder) received() []service.Notification {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]service.Notification, len(rec.notes))
	copy(out, rec.notes)
	return out
}

func TestService_Dispatch(t *testing.T) {
	t.Parallel()

	t.Run("loan created notifies librarians only", func(t *testing.T) {
		t.Parallel()
		librarians := newWebhookRecorder(t)
		borrower := newWebhookRecorder(t)

		svc := service.NewService([]service.Webhook{
			{URL: librarians.srv.URL, Channel: service.ChannelLibrarians},
			{URL: borrower.srv.URL, Channel: service.ChannelBorrower},
		}, zap.NewNop())

		err := svc.Dispatch(context.Background(), kafka.LoanEvent{
			Type:      kafka.EventLoanCreated,
			BookID:    3,
			BookTitle: "Clean Architecture",
			Username:  "u1",
		})
		require.NoError(t, err)

		require.Equal(t, []service.Notification{{
			Channel: service.ChannelLibrarians,
			Message: `u1 checked out "Clean Architecture"`,
		}}, librarians.received())
		require.Empty(t, borrower.received())
	})

	t.Run("loan returned notifies librarians and borrower", func(t *testing.T) {
		t.Parallel()
		librarians := newWebhookRecorder(t)
		borrower := newWebhookRecorder(t)

		svc := service.NewService([]service.Webhook{
			{URL: librarians.srv.URL, Channel: service.ChannelLibrarians},
			{URL: borrower.srv.URL, Channel: service.ChannelBorrower},
		}, zap.NewNop())

		err := svc.Dispatch(context.Background(), kafka.LoanEvent{
			Type:      kafka.EventLoanReturned,
			BookID:    3,
			BookTitle: "Clean Architecture",
			Username:  "u1",
			Email:     "u1@mail.test",
		})
		require.NoError(t, err)

		require.Equal(t, []service.Notification{{
			Channel: service.ChannelLibrarians,
			Message: `u1 returned "Clean Architecture"`,
		}}, librarians.received())
		require.Equal(t, []service.Notification{{
			Channel: service.ChannelBorrower,
			Email:   "u1@mail.test",
			Message: `thanks for returning "Clean Architecture"`,
		}}, borrower.received())
	})

	t.Run("unknown event type is dropped", func(t *testing.T) {
		t.Parallel()
		librarians := newWebhookRecorder(t)

		svc := service.NewService([]service.Webhook{
			{URL: librarians.srv.URL, Channel: service.ChannelLibrarians},
		}, zap.NewNop())

		err := svc.Dispatch(context.Background(), kafka.LoanEvent{Type: "loan-extended"})
		require.NoError(t, err)
		require.Empty(t, librarians.received())
	})

	t.Run("unconfigured channel is skipped", func(t *testing.T) {
		t.Parallel()
		librarians := newWebhookRecorder(t)

		svc := service.NewService([]service.Webhook{
			{URL: librarians.srv.URL, Channel: service.ChannelLibrarians},
			{URL: "", Channel: service.ChannelBorrower},
		}, zap.NewNop())

		err := svc.Dispatch(context.Background(), kafka.LoanEvent{
			Type:      kafka.EventLoanReturned,
			BookTitle: "Clean Architecture",
			Username:  "u1",
		})
		require.NoError(t, err)
		require.Len(t, librarians.received(), 1)
	})

	t.Run("failing endpoint surfaces an error", func(t *testing.T) {
		t.Parallel()
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(failing.Close)

		svc := service.NewService([]service.Webhook{
			{URL: failing.URL, Channel: service.ChannelLibrarians},
		}, zap.NewNop())

		err := svc.Dispatch(context.Background(), kafka.LoanEvent{
			Type:      kafka.EventLoanCreated,
			BookTitle: "Clean Architecture",
			Username:  "u1",
		})
		require.Error(t, err)
	})
}
