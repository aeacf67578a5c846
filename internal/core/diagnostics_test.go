package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mikey/rfp-manager/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnoseInbox(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})
	vendor := env.addVendor(t, "Acme", "a@v.com")
	env.dialer.mailbox = newFakeMailbox(
		&core.InboundMessage{From: "A@v.com", Subject: "Re: laptops", Body: replyBody},
		&core.InboundMessage{From: "stranger@x.com", Subject: "hello", Body: "hi"},
	)
	env.dialer.mailbox.seenOnFetch = true

	report := env.svc.DiagnoseInbox(context.Background())
	require.True(t, report.OK(), report.Error)
	assert.True(t, report.Connected)
	assert.Equal(t, 2, report.UnseenCount)
	assert.Len(t, report.UnseenEmails, 2)
	assert.Len(t, report.Vendors, 1)
	require.Len(t, report.VendorMatches, 2)
	assert.True(t, report.VendorMatches[0].Matched)
	assert.Equal(t, vendor.ID, report.VendorMatches[0].VendorID)
	assert.False(t, report.VendorMatches[1].Matched)

	// diagnostics never read bodies, touch flags or write to the store
	assert.Empty(t, env.dialer.mailbox.fetched)
	assert.Empty(t, env.dialer.mailbox.marked)
	assert.Empty(t, env.dialer.mailbox.seen)
	assert.Equal(t, 1, env.dialer.mailbox.closed)

	// a later poll still sees both messages as unread
	uids, err := env.dialer.mailbox.ListUnseen(context.Background())
	require.NoError(t, err)
	assert.Len(t, uids, 2)
}

func TestDiagnoseInboxSamplesFiveMessages(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})
	var msgs []*core.InboundMessage
	for i := 0; i < 8; i++ {
		msgs = append(msgs, &core.InboundMessage{From: fmt.Sprintf("v%d@x.com", i), Body: "hi"})
	}
	env.dialer.mailbox = newFakeMailbox(msgs...)

	report := env.svc.DiagnoseInbox(context.Background())
	require.True(t, report.OK())
	assert.Equal(t, 8, report.UnseenCount)
	assert.Len(t, report.UnseenEmails, 5)
}

func TestDiagnoseInboxMissingCredentials(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})
	env.dialer.credsErr = fmt.Errorf("%w: missing imap.user", core.ErrConnection)

	report := env.svc.DiagnoseInbox(context.Background())
	assert.False(t, report.OK())
	assert.Equal(t, "Checking inbox settings", report.Step)
	assert.Contains(t, report.Error, "imap.user")
	assert.False(t, report.Connected)
}

func TestDiagnoseInboxConnectFailure(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})
	env.dialer.openErr = errors.New("tls: handshake failure")

	report := env.svc.DiagnoseInbox(context.Background())
	assert.False(t, report.OK())
	assert.Equal(t, "Connecting to inbox", report.Step)
	assert.Equal(t, "tls: handshake failure", report.Error)
}
