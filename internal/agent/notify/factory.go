package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/doctor-appointment-agent/server/internal/agent/model"
)

// NewSender builds the EmailSender selected by MAIL_PROVIDER.
func NewSender(ctx context.Context, cfg model.MailConfig) (EmailSender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "smtp":
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.Username,
			Password: cfg.Password,
			FromName: cfg.FromName,
		})
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, errors.New("notify: SENDGRID_API_KEY is required for sendgrid")
		}
		if cfg.Username == "" {
			return nil, errors.New("notify: MAIL_USERNAME (sender address) is required for sendgrid")
		}
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.Username, cfg.FromName), nil
	case "ses":
		if cfg.Username == "" {
			return nil, errors.New("notify: MAIL_USERNAME (sender address) is required for ses")
		}
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("notify: load aws config: %w", err)
		}
		return NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.Username, cfg.FromName), nil
	case "stub":
		return StubSender{}, nil
	}
	return nil, fmt.Errorf("notify: unknown MAIL_PROVIDER %q", cfg.Provider)
}
