package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/surveillance-api/internal/config"
	"github.com/jwalitptl/surveillance-api/internal/model"
)

type Service interface {
	SendTrainingReport(ctx context.Context, to string, report *model.TrainingReport) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

// Sender is the part of gomail.Dialer the service uses.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	from   string
	sender Sender
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return NewService(cfg.From, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password))
}

func NewService(from string, sender Sender) Service {
	return &smtpService{from: from, sender: sender}
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"deref": func(f *float64) float64 { return *f },
}).Parse(
	`Training run finished at {{.FinishedAt.Format "2006-01-02 15:04:05 MST"}}
Case records read: {{.Records}}

Trained ({{len .Trained}}):
{{range .Trained}}{{with index $.Models .}}  - {{.Disease}}: slope={{printf "%.4f" .Slope}} intercept={{printf "%.4f" .Intercept}} start={{.StartDate.Format "2006-01-02"}}{{if .TestMSE}} test_mse={{printf "%.4f" (deref .TestMSE)}}{{end}}
{{end}}{{end}}
Skipped for insufficient data ({{len .Skipped}}):
{{range .Skipped}}  - {{.}}
{{end}}`))

func (s *smtpService) SendTrainingReport(ctx context.Context, to string, report *model.TrainingReport) error {
	var body bytes.Buffer
	if err := reportTemplate.Execute(&body, report); err != nil {
		return fmt.Errorf("failed to render training report: %w", err)
	}
	subject := fmt.Sprintf("Model retraining: %d trained, %d skipped", len(report.Trained), len(report.Skipped))
	return s.SendCustom(ctx, to, subject, body.String())
}

func (s *smtpService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
