package emailsvc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/grupka/grupka/core"
	logsvc "github.com/grupka/grupka/services/logger"
)

// rollbar-go starts its async transport when the logger package is loaded
var ignoreRollbar = goleak.IgnoreTopFunction("github.com/rollbar/rollbar-go.NewAsyncTransport.func1")

var opts = Options{
	AppName:          "Grupka",
	FrontendBaseURL:  "http://localhost:4321",
	DefaultFromEmail: mail.Address{Name: "Grupka", Address: "noreply@localhost"},
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConsoleService(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreRollbar)

	out := new(syncBuffer)
	svc := NewConsoleService(opts, logsvc.NewNopLogger())
	svc.out = out

	svc.SendMessages(
		&core.EmailMessage{
			To:      []mail.Address{{Name: "Ann", Address: "ann@example.com"}},
			Subject: "Hello",
			BodyStr: "plain body",
		},
		&core.EmailMessage{
			To:           []mail.Address{{Address: "bob@example.com"}},
			Subject:      "Join us",
			TemplateName: "invite",
			TemplateData: map[string]interface{}{
				"InviterName": "Ann",
				"GroupName":   "Sunflowers",
				"Code":        "ABCD2345",
				"ExpiresAt":   mustParseTime(t, "2024-05-01T13:00:00Z"),
			},
		},
		&core.EmailMessage{Subject: "nobody to send to", BodyStr: "dropped"},
	)
	svc.Wait()

	s := out.String()
	assert.Contains(t, s, "Subject: [Grupka] Hello\r\n")
	assert.Contains(t, s, `To: "Ann" <ann@example.com>`)
	assert.Contains(t, s, "plain body")
	assert.Contains(t, s, "Subject: [Grupka] Join us\r\n")
	assert.Contains(t, s, "http://localhost:4321/join/ABCD2345")
	assert.Contains(t, s, "text/html; charset=utf-8")
	assert.NotContains(t, s, "dropped")
}

func TestConsoleServiceMock(t *testing.T) {
	mock := NewConsoleServiceMock(opts, logsvc.NewNopLogger())
	mock.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "ann@example.com"}}, TemplateName: "unknown"},
		&core.EmailMessage{To: []mail.Address{{Address: "ann@example.com"}}, BodyStr: "hi"},
	)

	msgs := mock.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].TextContent)

	mock.Reset()
	assert.Empty(t, mock.Messages())
}

func TestSendgridService(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreRollbar)

	var (
		mu   sync.Mutex
		reqs []rest.Request
	)
	orig := sendgridAPIFunc
	sendgridAPIFunc = func(req rest.Request) (*rest.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		reqs = append(reqs, req)
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}
	t.Cleanup(func() { sendgridAPIFunc = orig })

	svc := NewSendgridService("key", opts, logsvc.NewNopLogger())
	svc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: "Ann", Address: "ann@example.com"}},
		Cc:      []mail.Address{{Address: "bob@example.com"}},
		Subject: "Hello",
		BodyStr: "plain body",
	})
	svc.Wait()

	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, rest.Post, req.Method)
	assert.True(t, strings.HasSuffix(req.BaseURL, sendgridEndpoint))
	assert.Equal(t, "Bearer key", req.Headers["Authorization"])

	var body struct {
		Personalizations []struct {
			To      []struct{ Email string } `json:"to"`
			Cc      []struct{ Email string } `json:"cc"`
			Subject string                   `json:"subject"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[Grupka] Hello", body.Personalizations[0].Subject)
	assert.Equal(t, "ann@example.com", body.Personalizations[0].To[0].Email)
	assert.Equal(t, "bob@example.com", body.Personalizations[0].Cc[0].Email)
	require.Len(t, body.Content, 1)
	assert.Equal(t, "plain body", body.Content[0].Value)
}

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}
