package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sony/gobreaker/v2"
)

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var errProviderStatus = errors.New("sendgrid server error")

// SendGridMailer sends through the SendGrid v3 mail API.
// The request template is copied per send, so one mailer is safe for concurrent use.
type SendGridMailer struct {
	request rest.Request
	from    string
	cb      *gobreaker.CircuitBreaker[*rest.Response]
}

func NewSendGridMailer(apiKey, baseURL, from string) *SendGridMailer {
	request := sendgrid.GetRequest(apiKey, "/v3/mail/send", strings.TrimRight(baseURL, "/"))
	request.Method = rest.Post
	return &SendGridMailer{
		request: request,
		from:    from,
		cb: gobreaker.NewCircuitBreaker[*rest.Response](gobreaker.Settings{
			Name:        "sendgrid",
			MaxRequests: 1,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Send posts the text part first, then the HTML part. Any non-2xx answer is an error.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	email := mail.NewV3MailInit(
		mail.NewEmail("", m.from),
		msg.Subject,
		mail.NewEmail("", msg.To),
		mail.NewContent("text/plain", msg.Text),
		mail.NewContent("text/html", msg.HTML),
	)

	req := m.request
	req.Body = mail.GetRequestBody(email)

	resp, err := m.cb.Execute(func() (*rest.Response, error) {
		resp, err := sendgrid.MakeRequestWithContext(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errProviderStatus
		}
		return resp, nil
	})
	if err != nil && !errors.Is(err, errProviderStatus) {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("SendGrid failed: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}
