package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mikey/rfp-manager/internal/adapters/lock"
	"github.com/mikey/rfp-manager/internal/adapters/store"
	"github.com/mikey/rfp-manager/internal/config"
	"github.com/mikey/rfp-manager/internal/core"
	"github.com/mikey/rfp-manager/internal/senders"
	"github.com/mikey/rfp-manager/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.HasPrefix(prompt, "Convert"):
		return `{"title":"Chairs","items":[{"name":"Chair","qty":10}],"budget":500}`, nil
	case strings.HasPrefix(prompt, "Extract"):
		return `{"price":450,"delivery_days":7,"warranty":"2y","terms":"net15","notes":""}`, nil
	case strings.HasPrefix(prompt, "Summarize"):
		return `{"summary":"Under budget, one week."}`, nil
	case strings.HasPrefix(prompt, "Given"):
		return `{"winner":1,"explanation":"Only bidder."}`, nil
	}
	return "", errors.New("unexpected prompt")
}

type stubSender struct{ fail string }

func (s stubSender) Send(ctx context.Context, email *core.OutboundEmail) error {
	if email.To == s.fail {
		return errors.New("550 rejected")
	}
	return nil
}

type stubMailbox struct{ msgs []*core.InboundMessage }

func (m *stubMailbox) ListUnseen(ctx context.Context) ([]uint32, error) {
	var uids []uint32
	for _, msg := range m.msgs {
		uids = append(uids, msg.UID)
	}
	return uids, nil
}

func (m *stubMailbox) Fetch(ctx context.Context, uid uint32) (*core.InboundMessage, error) {
	for _, msg := range m.msgs {
		if msg.UID == uid {
			return msg, nil
		}
	}
	return nil, fmt.Errorf("no message %d", uid)
}

func (m *stubMailbox) Envelope(ctx context.Context, uid uint32) (*core.InboundMessage, error) {
	msg, err := m.Fetch(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &core.InboundMessage{UID: msg.UID, From: msg.From, Subject: msg.Subject, Date: msg.Date}, nil
}

func (m *stubMailbox) MarkSeen(ctx context.Context, uid uint32) error { return nil }
func (m *stubMailbox) Close() error                                   { return nil }

type stubDialer struct {
	mailbox *stubMailbox
	err     error
}

func (d *stubDialer) Open(ctx context.Context) (core.Mailbox, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.mailbox, nil
}

func (d *stubDialer) CheckCredentials() error { return d.err }

type apiEnv struct {
	server *Server
	dialer *stubDialer
	lock   *lock.MemoryLock
}

func newAPIEnv(t *testing.T, debug bool) *apiEnv {
	t.Helper()
	logger := zap.NewNop()
	env := &apiEnv{
		dialer: &stubDialer{mailbox: &stubMailbox{}},
		lock:   lock.NewMemoryLock(),
	}
	svc := core.NewService(store.NewMemoryStore(logger), stubGenerator{}, stubSender{fail: "bad@v.com"},
		env.dialer, env.lock, senders.NewMatcher(true, logger), utils.NewTextProcessor(logger), logger,
		core.ServiceOptions{MaxBodySize: 4096, LLMTimeout: time.Second})
	env.server = NewServer(config.ServerConfig{DebugErrors: debug}, svc, logger)
	return env
}

func (e *apiEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestProcurementFlow(t *testing.T) {
	env := newAPIEnv(t, false)

	rec := env.do(t, http.MethodPost, "/vendors", `{"name":"Seatco","email":"a@v.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	vendor := decode[core.Vendor](t, rec)
	assert.Equal(t, int64(1), vendor.ID)

	rec = env.do(t, http.MethodPost, "/rfp/from-text", `{"text":"10 office chairs under 500"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rfp := decode[core.RFP](t, rec)
	assert.Equal(t, "Chairs", rfp.Title)

	rec = env.do(t, http.MethodPost, "/send-rfp", fmt.Sprintf(`{"rfpId":%d,"vendorIds":[%d]}`, rfp.ID, vendor.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dispatch := decode[core.DispatchResult](t, rec)
	assert.Equal(t, []string{"Seatco"}, dispatch.SentTo)

	env.dialer.mailbox.msgs = []*core.InboundMessage{{UID: 1, From: "a@v.com", Body: "450 total, 7 days"}}
	rec = env.do(t, http.MethodGet, "/email/poll", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	poll := decode[core.PollResult](t, rec)
	assert.Equal(t, 1, poll.Processed)
	assert.NotContains(t, rec.Body.String(), `"errors"`)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/rfps/%d", rfp.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[core.RFPDetail](t, rec)
	require.Len(t, detail.Proposals, 1)
	assert.Equal(t, "Under budget, one week.", detail.Proposals[0].Proposal.AISummary)
	assert.Equal(t, "Seatco", detail.Proposals[0].Vendor.Name)

	for _, path := range []string{"/rfps/%d/recommend", "/rfp/%d/recommend"} {
		rec = env.do(t, http.MethodGet, fmt.Sprintf(path, rfp.ID), "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, core.Recommendation{Winner: 1, Explanation: "Only bidder."}, decode[core.Recommendation](t, rec))
	}

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/rfps/%d", rfp.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/rfps/%d", rfp.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendRFPPartialFailureIsSuccess(t *testing.T) {
	env := newAPIEnv(t, false)
	env.do(t, http.MethodPost, "/vendors", `{"email":"a@v.com"}`)
	env.do(t, http.MethodPost, "/vendors", `{"email":"bad@v.com"}`)
	env.do(t, http.MethodPost, "/rfp/from-text", `{"text":"chairs"}`)

	rec := env.do(t, http.MethodPost, "/send-rfp", `{"rfpId":1,"vendorIds":[1,2]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[core.DispatchResult](t, rec)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"a@v.com"}, result.SentTo)
	assert.Equal(t, []string{"bad@v.com"}, result.Errors)
	assert.Equal(t, 2, result.Total)

	rec = env.do(t, http.MethodPost, "/email/send", `{"rfpId":1,"vendorId":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[core.DispatchResult](t, rec).Total)
}

func TestErrorStatuses(t *testing.T) {
	env := newAPIEnv(t, false)

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/send-rfp", `{"rfpId":1,"vendorIds":[]}`, http.StatusBadRequest},
		{http.MethodPost, "/send-rfp", `{"rfpId":9,"vendorIds":[1]}`, http.StatusNotFound},
		{http.MethodPost, "/send-rfp", `not json`, http.StatusBadRequest},
		{http.MethodPost, "/email/send", `{"rfpId":1}`, http.StatusBadRequest},
		{http.MethodPost, "/vendors", `{"name":"no email"}`, http.StatusBadRequest},
		{http.MethodGet, "/vendors/abc", "", http.StatusBadRequest},
		{http.MethodGet, "/vendors/5", "", http.StatusNotFound},
		{http.MethodPut, "/vendors/5", `{"email":"x@y.com"}`, http.StatusNotFound},
		{http.MethodDelete, "/vendors/5", "", http.StatusNotFound},
		{http.MethodDelete, "/rfps/5", "", http.StatusNotFound},
		{http.MethodGet, "/rfps/5/recommend", "", http.StatusNotFound},
		{http.MethodPost, "/rfp/from-text", `{"text":""}`, http.StatusBadRequest},
		{http.MethodPost, "/proposals/parse", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestRecommendWithoutProposals(t *testing.T) {
	env := newAPIEnv(t, false)
	env.do(t, http.MethodPost, "/rfp/from-text", `{"text":"chairs"}`)

	rec := env.do(t, http.MethodGet, "/rfps/1/recommend", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "no proposals")
}

func TestParseProposal(t *testing.T) {
	env := newAPIEnv(t, false)

	rec := env.do(t, http.MethodPost, "/proposals/parse", `{"email":"We quote 450 with delivery in 7 days."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	terms := decode[core.ProposalTerms](t, rec)
	assert.Equal(t, 450.0, terms.Price)
	assert.Equal(t, 7.0, terms.DeliveryDays)
}

func TestVendorUpdateAndList(t *testing.T) {
	env := newAPIEnv(t, false)
	env.do(t, http.MethodPost, "/vendors", `{"name":"Old","email":"a@v.com"}`)
	env.do(t, http.MethodPost, "/vendors", `{"name":"Other","email":"b@v.com"}`)

	rec := env.do(t, http.MethodPut, "/vendors/1", `{"name":"New","email":"A@V.com","contact":"Jo"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[core.Vendor](t, rec)
	assert.Equal(t, "New", v.Name)
	assert.Equal(t, "a@v.com", v.Email)

	rec = env.do(t, http.MethodGet, "/vendors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Vendor](t, rec), 2)

	rec = env.do(t, http.MethodPost, "/vendors", `{"name":"Copy","email":"B@v.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPut, "/vendors/2", `{"name":"Other","email":"a@v.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/vendors/2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPollErrors(t *testing.T) {
	env := newAPIEnv(t, true)
	env.dialer.err = fmt.Errorf("%w: missing imap.password", core.ErrConnection)

	rec := env.do(t, http.MethodGet, "/email/poll", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[pollErrorResponse](t, rec)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "imap.password")
	assert.NotEmpty(t, resp.Stack)

	env.dialer.err = nil
	release, ok, err := env.lock.TryAcquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	rec = env.do(t, http.MethodGet, "/email/poll", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPollErrorHidesStackByDefault(t *testing.T) {
	env := newAPIEnv(t, false)
	env.dialer.err = fmt.Errorf("%w: login failed", core.ErrConnection)

	rec := env.do(t, http.MethodGet, "/email/poll", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "stack")
}

func TestDebugInbox(t *testing.T) {
	env := newAPIEnv(t, false)
	env.dialer.mailbox.msgs = []*core.InboundMessage{{UID: 3, From: "a@v.com", Subject: "quote"}}

	rec := env.do(t, http.MethodGet, "/email/debug", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[map[string]any](t, rec)
	assert.Equal(t, "success", report["status"])
	assert.EqualValues(t, 1, report["unseenCount"])
	assert.Contains(t, report, "emailVendorMatches")

	env.dialer.err = errors.New("dial tcp: i/o timeout")
	rec = env.do(t, http.MethodGet, "/email/debug", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newAPIEnv(t, false)

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[healthResponse](t, rec).Status)

	env.do(t, http.MethodGet, "/vendors/7", "")
	rec = env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rfp_http_requests_total")
	assert.Contains(t, rec.Body.String(), `path="/vendors/{id}"`)
}

func TestServerStartStop(t *testing.T) {
	logger := zap.NewNop()
	svc := core.NewService(store.NewMemoryStore(logger), stubGenerator{}, stubSender{}, &stubDialer{mailbox: &stubMailbox{}},
		lock.NewMemoryLock(), senders.NewMatcher(true, logger), utils.NewTextProcessor(logger), logger, core.ServiceOptions{})
	srv := NewServer(config.ServerConfig{
		ListenAddress:   "127.0.0.1:0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}, svc, logger)

	require.NoError(t, srv.Start())
	resp, err := http.Get("http://" + srv.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop())
}
