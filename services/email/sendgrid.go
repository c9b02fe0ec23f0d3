package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"sync"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/grupka/grupka/core"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
	sendgridAPIFunc  = sendgrid.API // mockable
)

type sendgridService struct {
	key    string
	from   *sgmail.Email
	opts   Options
	logger core.Logger
	wg     sync.WaitGroup
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(apiKey string, opts Options, logger core.Logger) *sendgridService {
	return &sendgridService{
		key:    apiKey,
		from:   sgmail.NewEmail(opts.DefaultFromEmail.Name, opts.DefaultFromEmail.Address),
		opts:   opts,
		logger: logger,
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		svc.wg.Add(1)
		go func() {
			defer svc.wg.Done()
			if err := msg.Render(svc.opts.FrontendBaseURL); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if msg.HasRecipients() && msg.HasContent() {
				svc.send(*msg)
			}
		}()
	}
}

// Wait blocks until all pending messages are sent.
func (svc *sendgridService) Wait() {
	svc.wg.Wait()
}

func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.opts.subjectPrefix() + msg.Subject

	for _, to := range msg.To {
		p.AddTos(getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(getSGEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(getSGEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc *sendgridService) send(msg core.EmailMessage) {
	req := sendgrid.GetRequest(svc.key, sendgridEndpoint, sendgridHost)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := sendgridAPIFunc(req)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
	} else if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Error(fmt.Sprintf("sending email - status: %d - Body: %s", res.StatusCode, res.Body))
	}
}
