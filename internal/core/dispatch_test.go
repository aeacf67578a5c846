package core_test

import (
	"context"
	"testing"

	"github.com/mikey/rfp-manager/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRFPPartialFailure(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})
	rfp := env.addRFP(t)
	good := env.addVendor(t, "Acme", "a@v.com")
	bad := env.addVendor(t, "", "b@v.com")
	env.sender.fail["b@v.com"] = true

	result, err := env.svc.SendRFP(context.Background(), rfp.ID, []int64{good.ID, bad.ID})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, []string{"Acme"}, result.SentTo)
	assert.Equal(t, []string{"b@v.com"}, result.Errors)

	require.Len(t, env.sender.sent, 1)
	sent := env.sender.sent[0]
	assert.Equal(t, "a@v.com", sent.To)
	assert.Equal(t, core.RFPSubject(rfp), sent.Subject)
	assert.Contains(t, sent.HTML, "Dear Acme,")
	assert.Contains(t, sent.HTML, "Office laptops")
}

func TestSendRFPValidation(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})

	_, err := env.svc.SendRFP(context.Background(), 0, []int64{1})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = env.svc.SendRFP(context.Background(), 1, nil)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestSendRFPNotFound(t *testing.T) {
	env := newTestEnv(t, core.ServiceOptions{})
	vendor := env.addVendor(t, "Acme", "a@v.com")

	_, err := env.svc.SendRFP(context.Background(), 42, []int64{vendor.ID})
	assert.ErrorIs(t, err, core.ErrNotFound)

	rfp := env.addRFP(t)
	_, err = env.svc.SendRFP(context.Background(), rfp.ID, []int64{999})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, env.sender.sent)
}

func TestRenderRFPEmailEscapesAndDefaultsName(t *testing.T) {
	rfp := &core.RFP{
		ID:    7,
		Title: "<script>alert(1)</script>",
		Structured: core.RFPStructured{
			Items: []core.RFPItem{{Name: "Chair", Qty: 4}},
		},
	}

	html, err := core.RenderRFPEmail(rfp, &core.Vendor{Email: "x@v.com"})
	require.NoError(t, err)
	assert.Contains(t, html, "Dear Vendor,")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&#34;name&#34;: &#34;Chair&#34;")
	assert.Contains(t, html, "<strong>RFP ID:</strong> 7")
}

func TestRFPIDFromSubject(t *testing.T) {
	id, ok := core.RFPIDFromSubject("Re: RFP: Laptops [RFP-12]")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	_, ok = core.RFPIDFromSubject("Re: laptops")
	assert.False(t, ok)

	_, ok = core.RFPIDFromSubject("[RFP-0]")
	assert.False(t, ok)

	assert.Equal(t, "RFP: Laptops [RFP-3]", core.RFPSubject(&core.RFP{ID: 3, Title: "Laptops"}))
}
