package templates

import (
	"strings"
	"testing"
)

func TestLoadEmailConfig(t *testing.T) {
	config, err := LoadEmailConfig()
	if err != nil {
		t.Fatalf("LoadEmailConfig() error = %v", err)
	}
	if config.Branding.Name == "" {
		t.Error("branding name should not be empty")
	}
	if config.Subject(KindInvite) == config.Subject(KindPasswordReset) {
		t.Error("invite and reset subjects should differ")
	}
}

func TestRenderLinkTemplates(t *testing.T) {
	config, err := LoadEmailConfig()
	if err != nil {
		t.Fatalf("LoadEmailConfig() error = %v", err)
	}

	link := "https://cards.example.com/set-password?token=abc"
	data := NewLinkData(config, KindPasswordReset, link, 24)

	html, err := RenderLinkHTML(data)
	if err != nil {
		t.Fatalf("RenderLinkHTML() error = %v", err)
	}
	if !strings.Contains(html, "token=abc") {
		t.Error("html body should contain the link")
	}
	if !strings.Contains(html, "24 hours") {
		t.Error("html body should contain the expiry")
	}

	text, err := RenderLinkText(data)
	if err != nil {
		t.Fatalf("RenderLinkText() error = %v", err)
	}
	if !strings.Contains(text, link) {
		t.Error("text body should contain the link")
	}
	if !strings.Contains(text, config.PasswordReset.ButtonText) {
		t.Error("text body should contain the button text")
	}
}
