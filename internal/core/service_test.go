package core_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikey/rfp-manager/internal/adapters/lock"
	"github.com/mikey/rfp-manager/internal/adapters/store"
	"github.com/mikey/rfp-manager/internal/core"
	"github.com/mikey/rfp-manager/internal/senders"
	"github.com/mikey/rfp-manager/internal/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGenerator answers each prompt family with a canned response
type fakeGenerator struct {
	mu        sync.Mutex
	structure string
	extract   string
	summary   string
	compare   string
	err       error
	prompts   []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	switch {
	case strings.HasPrefix(prompt, "Convert the following procurement request"):
		return g.structure, nil
	case strings.HasPrefix(prompt, "Extract vendor proposal"):
		return g.extract, nil
	case strings.HasPrefix(prompt, "Summarize this vendor proposal"):
		return g.summary, nil
	case strings.HasPrefix(prompt, "Given these vendor proposals"):
		return g.compare, nil
	}
	return "", fmt.Errorf("unexpected prompt: %.40s", prompt)
}

type fakeSender struct {
	mu   sync.Mutex
	fail map[string]bool
	sent []*core.OutboundEmail
}

func (s *fakeSender) Send(ctx context.Context, email *core.OutboundEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[email.To] {
		return errors.New("550 mailbox unavailable")
	}
	s.sent = append(s.sent, email)
	return nil
}

// fakeMailbox keeps \Seen flags the way an IMAP server does. With seenOnFetch
// set it behaves like a client fetching without BODY.PEEK.
type fakeMailbox struct {
	messages    []*core.InboundMessage
	seen        map[uint32]bool
	fetchErr    map[uint32]error
	seenOnFetch bool
	listErr     error
	marked      []uint32
	fetched     []uint32
	closed      int
}

func newFakeMailbox(msgs ...*core.InboundMessage) *fakeMailbox {
	for i, m := range msgs {
		if m.UID == 0 {
			m.UID = uint32(i + 1)
		}
	}
	return &fakeMailbox{messages: msgs, seen: map[uint32]bool{}, fetchErr: map[uint32]error{}}
}

func (m *fakeMailbox) ListUnseen(ctx context.Context) ([]uint32, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var uids []uint32
	for _, msg := range m.messages {
		if !m.seen[msg.UID] {
			uids = append(uids, msg.UID)
		}
	}
	return uids, nil
}

func (m *fakeMailbox) Fetch(ctx context.Context, uid uint32) (*core.InboundMessage, error) {
	if err := m.fetchErr[uid]; err != nil {
		return nil, err
	}
	m.fetched = append(m.fetched, uid)
	for _, msg := range m.messages {
		if msg.UID == uid {
			if m.seenOnFetch {
				m.seen[uid] = true
			}
			out := *msg
			return &out, nil
		}
	}
	return nil, fmt.Errorf("message %d not found", uid)
}

func (m *fakeMailbox) Envelope(ctx context.Context, uid uint32) (*core.InboundMessage, error) {
	if err := m.fetchErr[uid]; err != nil {
		return nil, err
	}
	for _, msg := range m.messages {
		if msg.UID == uid {
			return &core.InboundMessage{UID: uid, From: msg.From, Subject: msg.Subject, Date: msg.Date}, nil
		}
	}
	return nil, fmt.Errorf("message %d not found", uid)
}

func (m *fakeMailbox) MarkSeen(ctx context.Context, uid uint32) error {
	m.seen[uid] = true
	m.marked = append(m.marked, uid)
	return nil
}

func (m *fakeMailbox) Close() error {
	m.closed++
	return nil
}

type fakeDialer struct {
	mailbox  *fakeMailbox
	openErr  error
	credsErr error
	opened   int
}

func (d *fakeDialer) Open(ctx context.Context) (core.Mailbox, error) {
	if d.credsErr != nil {
		return nil, d.credsErr
	}
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opened++
	return d.mailbox, nil
}

func (d *fakeDialer) CheckCredentials() error {
	return d.credsErr
}

// failingProposalStore refuses every proposal write
type failingProposalStore struct {
	core.Store
}

func (s failingProposalStore) CreateProposal(ctx context.Context, p *core.Proposal) error {
	return errors.New("disk full")
}

type testEnv struct {
	svc       *core.Service
	store     *store.MemoryStore
	generator *fakeGenerator
	sender    *fakeSender
	dialer    *fakeDialer
	lock      *lock.MemoryLock
}

func newTestEnv(t *testing.T, opts core.ServiceOptions) *testEnv {
	t.Helper()
	env := &testEnv{
		store: store.NewMemoryStore(zap.NewNop()),
		generator: &fakeGenerator{
			structure: `{"title":"Office laptops","items":[{"name":"Laptop","qty":20,"specs":"16GB RAM"}],"budget":50000,"delivery_timeline":"30 days","payment_terms":"net 30","notes":""}`,
			extract:   `{"price":100,"delivery_days":5,"warranty":"1yr","terms":"net30","notes":"ok"}`,
			summary:   `{"summary":"Cheap, fast, 1yr warranty."}`,
		},
		sender: &fakeSender{fail: map[string]bool{}},
		dialer: &fakeDialer{mailbox: newFakeMailbox()},
		lock:   lock.NewMemoryLock(),
	}
	if opts.MaxBodySize == 0 {
		opts.MaxBodySize = 4096
	}
	if opts.LLMTimeout == 0 {
		opts.LLMTimeout = time.Second
	}
	env.svc = env.newService(env.store, opts)
	return env
}

func (e *testEnv) newService(st core.Store, opts core.ServiceOptions) *core.Service {
	return e.newServiceWithLogger(st, opts, zap.NewNop())
}

func (e *testEnv) newServiceWithLogger(st core.Store, opts core.ServiceOptions, logger *zap.Logger) *core.Service {
	return core.NewService(st, e.generator, e.sender, e.dialer, e.lock,
		senders.NewMatcher(true, logger), utils.NewTextProcessor(logger), logger, opts)
}

func (e *testEnv) addVendor(t *testing.T, name, email string) *core.Vendor {
	t.Helper()
	v, err := e.svc.CreateVendor(context.Background(), &core.Vendor{Name: name, Email: email})
	require.NoError(t, err)
	return v
}

func (e *testEnv) addRFP(t *testing.T) *core.RFP {
	t.Helper()
	rfp, err := e.svc.CreateRFPFromText(context.Background(), "We need 20 laptops with 16GB RAM")
	require.NoError(t, err)
	return rfp
}

func (e *testEnv) proposalCount(t *testing.T, rfpID int64) int {
	t.Helper()
	ps, err := e.store.ListProposalsByRFP(context.Background(), rfpID)
	require.NoError(t, err)
	return len(ps)
}
