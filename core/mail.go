package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/grupka/grupka/fs"
)

const emailTemplatesDir = "templates/email"

var (
	templates    tmplCache
	tmplParseErr error
	tmplInit     sync.Once
)

type (
	tmplCacheEntry struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}
	tmplCache map[string]*tmplCacheEntry // {name: entry}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) getTemplate() (*tmplCacheEntry, bool) {
	entry, ok := templates[m.TemplateName]
	return entry, ok
}

// Render fills TextContent and HTMLContent from BodyStr or from the named template.
func (m *EmailMessage) Render(frontendBaseURL string) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.TemplateName == "" {
		return nil
	}

	tmplInit.Do(parseTemplates) // only parse once, on first render
	if tmplParseErr != nil {
		return tmplParseErr
	}
	entry, ok := m.getTemplate()
	if !ok {
		return errors.Errorf("unknown email template %q", m.TemplateName)
	}

	data := ContextData{FrontendBaseURL: frontendBaseURL, Data: m.TemplateData}
	var buff bytes.Buffer
	if entry.text != nil {
		if err := entry.text.Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering text template")
		}
		m.TextContent = buff.String()
	}
	if entry.html != nil {
		buff.Reset()
		if err := entry.html.Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering html template")
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

func parseTemplates() {
	templates = make(tmplCache)

	entries, err := appfs.FS.ReadDir(emailTemplatesDir)
	if err != nil {
		tmplParseErr = errors.Wrap(err, "reading email templates")
		return
	}

	for _, de := range entries {
		fname := de.Name()
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := templates[name]
		if !ok {
			entry = new(tmplCacheEntry)
			templates[name] = entry
		}

		fp := path.Join(emailTemplatesDir, fname)
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(appfs.FS, path.Join(emailTemplatesDir, "_base.txt"), fp)
			if err != nil {
				tmplParseErr = errors.Wrapf(err, "parsing %s", fname)
				return
			}
			entry.text = tmpl.Lookup("_base.txt").Option("missingkey=error")
		} else {
			tmpl, err := htmltmpl.ParseFS(appfs.FS, path.Join(emailTemplatesDir, "_base.gohtml"), fp)
			if err != nil {
				tmplParseErr = errors.Wrapf(err, "parsing %s", fname)
				return
			}
			entry.html = tmpl.Lookup("_base.gohtml").Option("missingkey=error")
		}
	}
}
