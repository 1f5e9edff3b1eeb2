package ses

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/saltwire/courier/internal/email"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	sendFn    func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.sendFn != nil {
		return m.sendFn(ctx, params, optFns...)
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-message-id")}, nil
}

func testMsg() *email.Message {
	return &email.Message{
		From:    "orders@shop.example",
		To:      "b@y.com",
		Subject: "Receipt",
		Text:    "thank you",
		HTML:    "<p>thank you</p>",
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	p := NewWithClient("noreply@shop.example", &mockSESClient{})
	if got := p.Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestSend_Success(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("noreply@shop.example", mock)

	res, err := p.Send(context.Background(), testMsg())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}
	if res.MessageID != "ses-message-id" {
		t.Errorf("message id: got %q", res.MessageID)
	}

	input := mock.lastInput
	if got := aws.ToString(input.FromEmailAddress); got != "noreply@shop.example" {
		t.Errorf("sender: got %q, want configured sender", got)
	}
	if len(input.Destination.ToAddresses) != 1 || input.Destination.ToAddresses[0] != "b@y.com" {
		t.Errorf("destination: got %v", input.Destination.ToAddresses)
	}
	simple := input.Content.Simple
	if got := aws.ToString(simple.Subject.Data); got != "Receipt" {
		t.Errorf("subject: got %q", got)
	}
	if simple.Body.Text == nil || simple.Body.Html == nil {
		t.Error("both text and html bodies should be set")
	}
}

func TestSend_SenderFallsBackToMessageFrom(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("", mock)

	if _, err := p.Send(context.Background(), testMsg()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := aws.ToString(mock.lastInput.FromEmailAddress); got != "orders@shop.example" {
		t.Errorf("sender: got %q, want message From", got)
	}
}

func TestSend_InvalidMessage(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("noreply@shop.example", mock)

	_, err := p.Send(context.Background(), &email.Message{From: "a@x.com", To: "b@y.com"})

	var valErr *email.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Send error: got %v, want *email.ValidationError", err)
	}
	if mock.callCount != 0 {
		t.Errorf("API called for an invalid message: %d calls", mock.callCount)
	}
}

func TestSend_ContextCancelledDuringRetry(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{
		sendFn: func(context.Context, *sesv2.SendEmailInput, ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	p := NewWithClient("noreply@shop.example", mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Send(ctx, testMsg())
	if err == nil {
		t.Fatal("Send should fail when the context is cancelled")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled: %v", err)
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1 before cancelled retry wait", mock.callCount)
	}
}
