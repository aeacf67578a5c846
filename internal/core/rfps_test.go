package core_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/rfp-manager/internal/adapters/store"
	"github.com/mikey/rfp-manager/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateRFPFromTextRoundTrip(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})

	rfp := env.addRFP(t)
	assert.Equal(t, "Office laptops", rfp.Title)
	assert.Equal(t, "We need 20 laptops with 16GB RAM", rfp.Description)

	detail, err := env.svc.GetRFPDetail(context.Background(), rfp.ID)
	require.NoError(t, err)
	s := detail.RFP.Structured
	require.Len(t, s.Items, 1)
	assert.Equal(t, core.RFPItem{Name: "Laptop", Qty: 20, Specs: "16GB RAM"}, s.Items[0])
	require.NotNil(t, s.Budget)
	assert.Equal(t, 50000.0, *s.Budget)
	assert.Equal(t, "30 days", s.DeliveryTimeline)
	assert.Equal(t, "net 30", s.PaymentTerms)
	assert.Empty(t, detail.Proposals)
}

func TestCreateRFPFromTextDefaultTitle(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})
	env.generator.structure = "```json\n{\"items\":[{\"name\":\"Desk\",\"qty\":2}],\"budget\":null}\n```"

	rfp, err := env.svc.CreateRFPFromText(context.Background(), "two desks")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultRFPTitle, rfp.Title)
	assert.Nil(t, rfp.Structured.Budget)
}

func TestCreateRFPFromTextFailures(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		response string
		genErr   error
		want     error
	}{
		{name: "empty text", text: "  ", want: core.ErrValidation},
		{name: "generator error", text: "chairs", genErr: errors.New("timeout"), want: core.ErrExtraction},
		{name: "not json", text: "chairs", response: "Sure! Here is your RFP.", want: core.ErrExtraction},
		{name: "no items", text: "chairs", response: `{"title":"Chairs","items":[]}`, want: core.ErrExtraction},
		{name: "negative budget", text: "chairs", response: `{"items":[{"name":"Chair","qty":1}],"budget":-5}`, want: core.ErrExtraction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, core.ServiceOptions{})
			env.generator.structure = tt.response
			env.generator.err = tt.genErr

			_, err := env.svc.CreateRFPFromText(context.Background(), tt.text)
			assert.ErrorIs(t, err, tt.want)

			rfps, err := env.svc.ListRFPs(context.Background())
			require.NoError(t, err)
			assert.Empty(t, rfps)
		})
	}
}

func TestGetRFPDetailJoinsVendors(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})
	vendor := env.addVendor(t, "Acme", "a@v.com")
	rfp := env.addRFP(t)
	env.dialer.mailbox = newFakeMailbox(&core.InboundMessage{From: "a@v.com", Body: replyBody})
	_, err := env.svc.PollInbox(context.Background())
	require.NoError(t, err)

	detail, err := env.svc.GetRFPDetail(context.Background(), rfp.ID)
	require.NoError(t, err)
	require.Len(t, detail.Proposals, 1)
	assert.Equal(t, vendor.ID, detail.Proposals[0].Vendor.ID)
	assert.Equal(t, 100.0, detail.Proposals[0].Proposal.Parsed.Price)
}

func TestDeleteRFP(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})
	rfp := env.addRFP(t)

	require.NoError(t, env.svc.DeleteRFP(context.Background(), rfp.ID))
	_, err := env.svc.GetRFPDetail(context.Background(), rfp.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, env.svc.DeleteRFP(context.Background(), rfp.ID), core.ErrNotFound)
}

func TestParseProposal(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})

	terms, err := env.svc.ParseProposal(context.Background(), replyBody)
	require.NoError(t, err)
	assert.Equal(t, 100.0, terms.Price)
	assert.Equal(t, 5.0, terms.DeliveryDays)

	_, err = env.svc.ParseProposal(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrValidation)

	env.generator.extract = `{"delivery_days":5}`
	_, err = env.svc.ParseProposal(context.Background(), replyBody)
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestVendorLifecycle(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})
	ctx := context.Background()

	_, err := env.svc.CreateVendor(ctx, &core.Vendor{Name: "No email"})
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = env.svc.CreateVendor(ctx, &core.Vendor{Email: "not an address"})
	assert.ErrorIs(t, err, core.ErrValidation)

	v, err := env.svc.CreateVendor(ctx, &core.Vendor{Name: " Acme ", Email: "Sales@Acme.COM"})
	require.NoError(t, err)
	assert.Equal(t, "Acme", v.Name)
	assert.Equal(t, "sales@acme.com", v.Email)

	v.Contact = "+1 555 0100"
	updated, err := env.svc.UpdateVendor(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, "+1 555 0100", updated.Contact)

	_, err = env.svc.UpdateVendor(ctx, &core.Vendor{ID: 99, Email: "x@y.com"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	vendors, err := env.svc.ListVendors(ctx)
	require.NoError(t, err)
	assert.Len(t, vendors, 1)

	require.NoError(t, env.svc.DeleteVendor(ctx, v.ID))
	assert.ErrorIs(t, env.svc.DeleteVendor(ctx, v.ID), core.ErrNotFound)
}

func TestCreateVendorRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	sqlite, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "rfp.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	stores := map[string]core.Store{
		"memory": store.NewMemoryStore(zap.NewNop()),
		"sqlite": sqlite,
	}
	for name, st := range stores {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, core.ServiceOptions{})
			svc := env.newService(st, core.ServiceOptions{MaxBodySize: 4096, LLMTimeout: time.Second})

			first, err := svc.CreateVendor(ctx, &core.Vendor{Name: "Acme", Email: "a@v.com"})
			require.NoError(t, err)

			_, err = svc.CreateVendor(ctx, &core.Vendor{Name: "Acme Again", Email: "A@V.com"})
			assert.ErrorIs(t, err, core.ErrConflict)

			other, err := svc.CreateVendor(ctx, &core.Vendor{Name: "Beta", Email: "b@v.com"})
			require.NoError(t, err)
			_, err = svc.UpdateVendor(ctx, &core.Vendor{ID: other.ID, Name: "Beta", Email: "a@V.COM"})
			assert.ErrorIs(t, err, core.ErrConflict)

			vendors, err := svc.ListVendors(ctx)
			require.NoError(t, err)
			assert.Len(t, vendors, 2)

			found, err := st.FindVendorByEmail(ctx, "a@v.com")
			require.NoError(t, err)
			assert.Equal(t, first.ID, found.ID)
		})
	}
}
