package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	textTemplate "text/template"

	"gopkg.in/yaml.v3"
)

//go:embed emails/*
var emailTemplates embed.FS

// Kind selects which link email to render
type Kind string

const (
	KindInvite        Kind = "invite"
	KindPasswordReset Kind = "password_reset"
)

// LinkCopy is the wording of one link email
type LinkCopy struct {
	Intro         string `yaml:"intro"`
	ButtonText    string `yaml:"button_text"`
	ExpiryWarning string `yaml:"expiry_warning"`
	IgnoreText    string `yaml:"ignore_text"`
}

// EmailConfig holds email configuration from config.yaml
type EmailConfig struct {
	Branding struct {
		Name         string `yaml:"name"`
		Tagline      string `yaml:"tagline"`
		SupportEmail string `yaml:"support_email"`
	} `yaml:"branding"`

	Design struct {
		PrimaryColor string `yaml:"primary_color"`
		TextColor    string `yaml:"text_color"`
		MutedColor   string `yaml:"muted_color"`
		LightBg      string `yaml:"light_bg"`
		BorderColor  string `yaml:"border_color"`
	} `yaml:"design"`

	Subjects struct {
		Invite        string `yaml:"invite"`
		PasswordReset string `yaml:"password_reset"`
	} `yaml:"subjects"`

	Invite        LinkCopy `yaml:"invite"`
	PasswordReset LinkCopy `yaml:"password_reset"`
}

// LoadEmailConfig loads email configuration from embedded config.yaml
func LoadEmailConfig() (*EmailConfig, error) {
	data, err := emailTemplates.ReadFile("emails/config.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read email config: %w", err)
	}

	var config EmailConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse email config: %w", err)
	}

	return &config, nil
}

// Subject returns the subject line for kind
func (c *EmailConfig) Subject(kind Kind) string {
	if kind == KindInvite {
		return c.Subjects.Invite
	}
	return c.Subjects.PasswordReset
}

// Copy returns the wording for kind
func (c *EmailConfig) Copy(kind Kind) LinkCopy {
	if kind == KindInvite {
		return c.Invite
	}
	return c.PasswordReset
}

// LinkData holds data for the invite and password reset templates
type LinkData struct {
	Subject string
	Link    string

	// Config-based data (populated from config.yaml)
	BrandName     string
	Tagline       string
	SupportEmail  string
	Intro         string
	ButtonText    string
	ExpiryWarning string
	IgnoreText    string

	// Design colors
	PrimaryColor string
	TextColor    string
	MutedColor   string
	LightBg      string
	BorderColor  string
}

// NewLinkData fills template data for kind from config
func NewLinkData(config *EmailConfig, kind Kind, link string, expiryHours int) LinkData {
	wording := config.Copy(kind)
	return LinkData{
		Subject:       config.Subject(kind),
		Link:          link,
		BrandName:     config.Branding.Name,
		Tagline:       config.Branding.Tagline,
		SupportEmail:  config.Branding.SupportEmail,
		Intro:         wording.Intro,
		ButtonText:    wording.ButtonText,
		ExpiryWarning: fmt.Sprintf(wording.ExpiryWarning, expiryHours),
		IgnoreText:    wording.IgnoreText,
		PrimaryColor:  config.Design.PrimaryColor,
		TextColor:     config.Design.TextColor,
		MutedColor:    config.Design.MutedColor,
		LightBg:       config.Design.LightBg,
		BorderColor:   config.Design.BorderColor,
	}
}

// RenderLinkHTML renders the HTML body
func RenderLinkHTML(data LinkData) (string, error) {
	tmplData, err := emailTemplates.ReadFile("emails/link.html")
	if err != nil {
		return "", fmt.Errorf("failed to read link.html: %w", err)
	}

	tmpl, err := template.New("link").Parse(string(tmplData))
	if err != nil {
		return "", fmt.Errorf("failed to parse link template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute link template: %w", err)
	}

	return buf.String(), nil
}

// RenderLinkText renders the plain text body
func RenderLinkText(data LinkData) (string, error) {
	tmplData, err := emailTemplates.ReadFile("emails/link.txt")
	if err != nil {
		return "", fmt.Errorf("failed to read link.txt: %w", err)
	}

	tmpl, err := textTemplate.New("link-text").Parse(string(tmplData))
	if err != nil {
		return "", fmt.Errorf("failed to parse link text template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute link text template: %w", err)
	}

	return buf.String(), nil
}
