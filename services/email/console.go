package emailsvc

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/grupka/grupka/core"
)

type Options struct {
	AppName          string
	FrontendBaseURL  string
	DefaultFromEmail mail.Address
}

func (o Options) subjectPrefix() string {
	return "[" + o.AppName + "] "
}

type consoleService struct {
	opts   Options
	out    io.Writer
	logger core.Logger
	wg     sync.WaitGroup
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService returns an EmailService that prints messages instead of sending them.
func NewConsoleService(opts Options, logger core.Logger) *consoleService {
	return &consoleService{opts: opts, out: os.Stdout, logger: logger}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		svc.wg.Add(1)
		go func() {
			defer svc.wg.Done()
			if err := svc.sendMessage(msg); err != nil {
				svc.logger.Error("sending email", err)
			}
		}()
	}
}

// Wait blocks until all pending messages are written.
func (svc *consoleService) Wait() {
	svc.wg.Wait()
}

func (svc *consoleService) sendMessage(msg *core.EmailMessage) error {
	if err := msg.Render(svc.opts.FrontendBaseURL); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return nil
	}
	body, err := svc.format(*msg)
	if err != nil {
		return err
	}
	_, err = io.WriteString(svc.out, body)
	return err
}

func (svc *consoleService) format(msg core.EmailMessage) (string, error) {
	body := new(strings.Builder)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.opts.DefaultFromEmail.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.opts.subjectPrefix()+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		_, _ = fmt.Fprintf(body, "BCC: %s\r\n", joinAddresses(msg.Bcc))
	}

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return "", errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	if err = altW.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart writer")
	}
	return body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// ConsoleServiceMock renders messages synchronously and keeps them for inspection.
type ConsoleServiceMock struct {
	svc *consoleService

	mu           sync.Mutex
	SentMessages []core.EmailMessage
}

var _ core.EmailService = (*ConsoleServiceMock)(nil)

func NewConsoleServiceMock(opts Options, logger core.Logger) *ConsoleServiceMock {
	return &ConsoleServiceMock{
		svc: &consoleService{opts: opts, out: io.Discard, logger: logger},
	}
}

func (mock *ConsoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		if err := mock.svc.sendMessage(msg); err != nil {
			mock.svc.logger.Error("sending email", err)
			continue
		}
		mock.mu.Lock()
		mock.SentMessages = append(mock.SentMessages, *msg)
		mock.mu.Unlock()
	}
}

// Messages returns a copy of the sent messages.
func (mock *ConsoleServiceMock) Messages() []core.EmailMessage {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return append([]core.EmailMessage{}, mock.SentMessages...)
}

// Reset forgets sent messages.
func (mock *ConsoleServiceMock) Reset() {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	mock.SentMessages = nil
}
