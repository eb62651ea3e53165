package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/require"

	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/logger"
)

type stubSendClient struct {
	resp *rest.Response
	err  error
	sent []*mail.SGMailV3
}

func (s *stubSendClient) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	s.sent = append(s.sent, email)
	return s.resp, s.err
}

var testCfg = config.SendgridConfig{APIKey: "key", DefaultFrom: "no-reply@orders.local", FromName: "Orders"}

func TestSendGridSend(t *testing.T) {
	client := &stubSendClient{resp: &rest.Response{StatusCode: 202}}
	m, err := NewSendGrid(client, testCfg, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), Message{
		To:      "buyer@example.com",
		Subject: "Order status update",
		Body:    "Order placed, thank you for your order!",
	}))
	require.Len(t, client.sent, 1)
	require.Equal(t, "Order status update", client.sent[0].Subject)
	require.Equal(t, "no-reply@orders.local", client.sent[0].From.Address)
	require.Equal(t, "buyer@example.com", client.sent[0].Personalizations[0].To[0].Address)
}

func TestSendGridSendFailures(t *testing.T) {
	client := &stubSendClient{resp: &rest.Response{StatusCode: 401, Body: "unauthorized"}}
	m, err := NewSendGrid(client, testCfg, nil)
	require.NoError(t, err)
	require.Error(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "s"}))

	client = &stubSendClient{err: errors.New("network")}
	m, err = NewSendGrid(client, testCfg, nil)
	require.NoError(t, err)
	require.Error(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "s"}))

	require.Error(t, m.Send(context.Background(), Message{Subject: "s"}))
}

func TestNewPicksLogMailerWithoutKey(t *testing.T) {
	m, err := New(config.SendgridConfig{DefaultFrom: "x@example.com"}, logger.Nop())
	require.NoError(t, err)
	_, ok := m.(*LogMailer)
	require.True(t, ok)
	require.NoError(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "s"}))

	m, err = New(testCfg, logger.Nop())
	require.NoError(t, err)
	_, ok = m.(*SendGrid)
	require.True(t, ok)
}
