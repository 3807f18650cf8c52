package email

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	AlertName       string
	UserName        string
	ListingTitle    string
	ListingCity     string
	ListingType     string
	ListingPrice    string
	MatchedCriteria []string
	ListingURL      string
	ManageURL       string
}

func (p testPayload) Subject() string { return "Nieuw aanbod: " + p.ListingTitle }

func TestSMTPSendTemplate(t *testing.T) {
	p, err := NewSMTP(Config{Host: "mail.local", Port: 1025, From: "alerts@horeca.nl"})
	require.NoError(t, err)

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	p.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotMsg = string(msg)
		assert.Nil(t, a)
		return nil
	}

	err = p.SendTemplate(context.Background(), []string{"fleur@example.nl"}, "search_alert_match", testPayload{
		AlertName:       "Amsterdam centrum",
		UserName:        "Fleur",
		ListingTitle:    "Café de Kroon",
		ListingCity:     "Amsterdam",
		ListingType:     "CAFE",
		ListingPrice:    "€ 2.500 p/m",
		MatchedCriteria: []string{"city: Amsterdam"},
		ListingURL:      "https://horeca.example.nl/aanbod/cafe-de-kroon",
		ManageURL:       "https://horeca.example.nl/dashboard/zoekopdrachten",
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.local:1025", gotAddr)
	assert.Equal(t, []string{"fleur@example.nl"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: =?utf-8?q?Nieuw_aanbod:_Caf=C3=A9_de_Kroon?=")
	assert.Contains(t, gotMsg, "Hallo Fleur")
	assert.Contains(t, gotMsg, "<li>city: Amsterdam</li>")
	assert.Contains(t, gotMsg, `href="https://horeca.example.nl/aanbod/cafe-de-kroon"`)
}

func TestSMTPUnknownTemplate(t *testing.T) {
	p, err := NewSMTP(Config{Host: "mail.local", Port: 1025})
	require.NoError(t, err)
	err = p.SendTemplate(context.Background(), []string{"a@b.nl"}, "missing", nil)
	assert.Error(t, err)
}

func TestSMTPRequiresRecipients(t *testing.T) {
	p, err := NewSMTP(Config{Host: "mail.local", Port: 1025})
	require.NoError(t, err)
	assert.ErrorIs(t, p.Send(context.Background(), nil, "s", "b"), ErrNoRecipients)
}
