package model

import (
	"fmt"
	"time"
)

// ================ Config ================
type ConversationConfig struct {
	TTL      time.Duration `envconfig:"CONVERSATION_TTL" default:"30m"`
	MaxTurns int           `envconfig:"CONVERSATION_MAX_TURNS" default:"20"`
	Tools    struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"10"`
	}
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.2"`
}

type ResponsePromptConfig struct {
	ClinicName string `envconfig:"PROMPT_CLINIC_NAME" default:"City Clinic"`
}

type BookingConfig struct {
	ConfirmationTTL time.Duration `envconfig:"BOOKING_CONFIRMATION_TTL" default:"30m"`
	SweepInterval   time.Duration `envconfig:"BOOKING_SWEEP_INTERVAL" default:"1m"`
	Timezone        string        `envconfig:"BOOKING_TIMEZONE" default:"UTC"`
}

// Location resolves Timezone; appointment date and time are read in it.
func (c BookingConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type SessionConfig struct {
	Secret string        `envconfig:"SESSION_SECRET" required:"true"`
	TTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

type MailConfig struct {
	Provider       string `envconfig:"MAIL_PROVIDER" default:"smtp"`
	Username       string `envconfig:"MAIL_USERNAME"`
	Password       string `envconfig:"MAIL_PASSWORD"`
	FromName       string `envconfig:"MAIL_FROM_NAME" default:"Clinic Appointments"`
	SMTPHost       string `envconfig:"MAIL_SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort       int    `envconfig:"MAIL_SMTP_PORT" default:"465"`
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	AWSRegion      string `envconfig:"AWS_REGION"`
}
