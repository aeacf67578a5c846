package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	require.NoError(t, cfg.Validate())

	llm := cfg.GetLLM()
	assert.Equal(t, "openai", llm.Provider)
	assert.Equal(t, time.Minute, llm.Timeout)

	poll := cfg.GetPoll()
	assert.False(t, poll.CorrelateSubject)
	assert.False(t, poll.MarkSeen)
	assert.True(t, poll.NormalizeEmail)

	imap := cfg.GetIMAP()
	assert.True(t, imap.Peek)
	assert.Equal(t, "INBOX", imap.Mailbox)
	assert.Equal(t, "imap.gmail.com:993", imap.Address())
	assert.ElementsMatch(t, []string{"imap.user", "imap.password"}, imap.MissingCredentials())

	assert.Equal(t, "sqlite", cfg.GetStore().Type)
	assert.Equal(t, "memory", cfg.GetLock().Type)
	assert.Equal(t, 10*time.Minute, cfg.GetLock().TTL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("llm.provider", "cohere")
	cfg.Set("smtp.timeout", "soon")

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider")
	assert.Contains(t, err.Error(), "smtp.timeout")
}

func TestSMTPSenderFallsBackToUser(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("smtp.user", "buyer@example.com")

	assert.Equal(t, "buyer@example.com", cfg.GetSMTP().Sender())

	cfg.Set("smtp.from", "procurement@example.com")
	assert.Equal(t, "procurement@example.com", cfg.GetSMTP().Sender())
}
