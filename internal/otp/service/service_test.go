package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"goodies-auth/internal/gateway"
	"goodies-auth/internal/security"
	sessiondomain "goodies-auth/internal/session/domain"
	userdomain "goodies-auth/internal/user/domain"
	userrepo "goodies-auth/internal/user/repository"
	"goodies-auth/internal/verification/domain"
	verificationrepo "goodies-auth/internal/verification/repository"
)

const (
	testPhone = "0987654321"
	testCode  = "1234"
)

type memRequestRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Request
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{byID: make(map[string]*domain.Request)}
}

func (r *memRequestRepo) GetByProviderRequestID(_ context.Context, id string) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.byID[id]; ok {
		c := *req
		return &c, nil
	}
	return nil, nil
}

func (r *memRequestRepo) GetByPhone(_ context.Context, phone string) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.byID {
		if req.PhoneNumber == phone {
			c := *req
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memRequestRepo) Create(_ context.Context, req *domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.PhoneNumber == req.PhoneNumber {
			return verificationrepo.ErrDuplicatePhone
		}
	}
	c := *req
	r.byID[req.ProviderRequestID] = &c
	return nil
}

func (r *memRequestRepo) MarkSuccess(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.byID[id]
	if !ok || req.Success {
		return false, nil
	}
	req.Success = true
	req.UpdatedAt = at
	return true, nil
}

func (r *memRequestRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	delete(r.byID, id)
	return ok, nil
}

func (r *memRequestRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type memUserRepo struct {
	mu        sync.Mutex
	byPhone   map[string]*userdomain.User
	createErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byPhone: make(map[string]*userdomain.User)}
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byPhone {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByPhone(_ context.Context, phone string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byPhone[phone]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r *memUserRepo) Create(_ context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.byPhone[u.PhoneNumber]; ok {
		return userrepo.ErrDuplicatePhone
	}
	c := *u
	r.byPhone[u.PhoneNumber] = &c
	return nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPhone)
}

func (r *memUserRepo) UpdatePINHash(_ context.Context, id, hash string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byPhone {
		if u.ID == id {
			u.PINHash = hash
			u.UpdatedAt = at
			return true, nil
		}
	}
	return false, nil
}

type fakeIssuer struct {
	mu       sync.Mutex
	issued   []string
	revoked  []string
	revAll   []string
	issueErr error
}

func (f *fakeIssuer) Issue(_ context.Context, userID string) (string, *sessiondomain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issueErr != nil {
		return "", nil, f.issueErr
	}
	f.issued = append(f.issued, userID)
	n := len(f.issued)
	return fmt.Sprintf("key-%d", n), &sessiondomain.Session{ID: fmt.Sprintf("sess-%d", n), UserID: userID}, nil
}

func (f *fakeIssuer) Revoke(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, sessionID)
	return nil
}

func (f *fakeIssuer) RevokeAll(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revAll = append(f.revAll, userID)
	return 2, nil
}

func (f *fakeIssuer) issuedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.issued)
}

// memTransactor snapshots the in-memory stores and restores them when fn fails.
type memTransactor struct {
	requests *memRequestRepo
	users    *memUserRepo
	sessions *fakeIssuer
}

func (m *memTransactor) InTx(ctx context.Context, fn func(FinishStores) error) error {
	m.requests.mu.Lock()
	reqs := make(map[string]*domain.Request, len(m.requests.byID))
	for k, v := range m.requests.byID {
		c := *v
		reqs[k] = &c
	}
	m.requests.mu.Unlock()
	m.users.mu.Lock()
	users := make(map[string]*userdomain.User, len(m.users.byPhone))
	for k, v := range m.users.byPhone {
		c := *v
		users[k] = &c
	}
	m.users.mu.Unlock()
	issued := m.sessions.issuedCount()

	err := fn(FinishStores{Requests: m.requests, Users: m.users, Sessions: m.sessions})
	if err == nil {
		return nil
	}
	m.requests.mu.Lock()
	m.requests.byID = reqs
	m.requests.mu.Unlock()
	m.users.mu.Lock()
	m.users.byPhone = users
	m.users.mu.Unlock()
	m.sessions.mu.Lock()
	m.sessions.issued = m.sessions.issued[:issued]
	m.sessions.mu.Unlock()
	return err
}

// fakeGateway accepts testCode for every request and counts calls.
type fakeGateway struct {
	mu       sync.Mutex
	seq      int
	starts   int
	checks   int
	cancels  []string
	startErr error
	checkErr error
}

func (g *fakeGateway) Start(_ context.Context, phone string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.starts++
	if g.startErr != nil {
		return "", g.startErr
	}
	g.seq++
	return fmt.Sprintf("r%d", g.seq), nil
}

func (g *fakeGateway) Check(_ context.Context, requestID, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checks++
	if g.checkErr != nil {
		return g.checkErr
	}
	if code != testCode {
		return gateway.ErrCodeMismatch
	}
	return nil
}

func (g *fakeGateway) Cancel(_ context.Context, requestID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels = append(g.cancels, requestID)
	return nil
}

func (g *fakeGateway) counts() (starts, checks, cancels int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.starts, g.checks, len(g.cancels)
}

type harness struct {
	svc      *Service
	requests *memRequestRepo
	users    *memUserRepo
	sessions *fakeIssuer
	gw       *fakeGateway
	hasher   *security.Hasher
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		requests: newMemRequestRepo(),
		users:    newMemUserRepo(),
		sessions: &fakeIssuer{},
		gw:       &fakeGateway{},
		hasher:   security.NewHasher(4),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	tx := &memTransactor{requests: h.requests, users: h.users, sessions: h.sessions}
	h.svc = NewService(DefaultConfig(), h.requests, h.users, h.sessions, tx, h.gw, h.hasher, nil, nil)
	h.svc.now = func() time.Time { return h.now }
	return h
}

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

// verifiedRequest runs requestOTP and confirmOTP for phone and returns the request id.
func (h *harness) verifiedRequest(t *testing.T, phone string) string {
	t.Helper()
	ctx := context.Background()
	id, err := h.svc.RequestOTP(ctx, phone)
	if err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	ok, err := h.svc.ConfirmOTP(ctx, id, testCode)
	if err != nil || !ok {
		t.Fatalf("ConfirmOTP = %v, %v", ok, err)
	}
	return id
}

func (h *harness) seedUser(t *testing.T, phone, pin string) *userdomain.User {
	t.Helper()
	u := &userdomain.User{
		ID:          "user-" + phone,
		PhoneNumber: phone,
		Name:        "Bob",
		ExtraInfo:   userdomain.ExtraInfo{UserType: userdomain.UserTypeSkip},
		CreatedAt:   h.now,
		UpdatedAt:   h.now,
	}
	if pin != "" {
		hash, err := h.hasher.Hash([]byte(pin))
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		u.PINHash = hash
	}
	if err := h.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func strPtr(s string) *string { return &s }

func TestRequestOTP_Validation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		phone string
		valid bool
	}{
		{"0987654321", true},
		{"12345678901234", true},
		{"123456789", false},
		{"123456789012345", false},
		{"+15551234567", false},
		{"555-123-4567", false},
		{"", false},
		{"０９８７６５４３２１", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			_, err := h.svc.RequestOTP(context.Background(), tt.phone)
			if tt.valid && err != nil {
				t.Fatalf("RequestOTP(%q): %v", tt.phone, err)
			}
			if !tt.valid && KindOf(err) != KindValidation {
				t.Fatalf("RequestOTP(%q) kind = %v, want validation (err %v)", tt.phone, KindOf(err), err)
			}
		})
	}
}

func TestRequestOTP_SecondWithinWindowConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.RequestOTP(ctx, testPhone); err != nil {
		t.Fatalf("first RequestOTP: %v", err)
	}
	h.advance(10*time.Minute - time.Second)
	_, err := h.svc.RequestOTP(ctx, testPhone)
	if !errors.Is(err, ErrOutstandingRequest) {
		t.Fatalf("second RequestOTP err = %v, want ErrOutstandingRequest", err)
	}
	if starts, _, _ := h.gw.counts(); starts != 1 {
		t.Errorf("gateway starts = %d, want 1", starts)
	}
}

func TestRequestOTP_ConfirmedRequestStillBlocksWithinWindow(t *testing.T) {
	h := newHarness(t)
	h.verifiedRequest(t, testPhone)
	h.advance(5 * time.Minute)
	if _, err := h.svc.RequestOTP(context.Background(), testPhone); !errors.Is(err, ErrOutstandingRequest) {
		t.Fatalf("err = %v, want ErrOutstandingRequest", err)
	}
}

func TestRequestOTP_AfterWindowSupersedes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.RequestOTP(ctx, testPhone)
	if err != nil {
		t.Fatalf("first RequestOTP: %v", err)
	}
	h.advance(10 * time.Minute)
	second, err := h.svc.RequestOTP(ctx, testPhone)
	if err != nil {
		t.Fatalf("second RequestOTP: %v", err)
	}
	if second == first {
		t.Fatal("second request should have a new id")
	}
	if got, _ := h.requests.GetByProviderRequestID(ctx, first); got != nil {
		t.Error("prior request should be deleted")
	}
	if h.requests.count() != 1 {
		t.Errorf("rows = %d, want 1", h.requests.count())
	}
	if _, _, cancels := h.gw.counts(); cancels != 1 {
		t.Errorf("gateway cancels = %d, want 1 for the superseded pending request", cancels)
	}
	if _, err := h.svc.ConfirmOTP(ctx, first, testCode); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("confirming the superseded request err = %v, want ErrRequestNotFound", err)
	}
}

func TestRequestOTP_GatewayFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.gw.startErr = fmt.Errorf("%w: throttled", gateway.ErrUpstream)

	_, err := h.svc.RequestOTP(context.Background(), testPhone)
	if KindOf(err) != KindUpstream {
		t.Fatalf("kind = %v, want upstream (err %v)", KindOf(err), err)
	}
	if !errors.Is(err, gateway.ErrUpstream) {
		t.Error("upstream error should wrap the gateway error")
	}
	if h.requests.count() != 0 {
		t.Errorf("rows = %d, want 0", h.requests.count())
	}
}

func TestRequestOTP_ConcurrentStartsYieldOneRow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.RequestOTP(ctx, testPhone)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrOutstandingRequest):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != n-1 {
		t.Fatalf("successes = %d, conflicts = %d; want 1 and %d", successes, conflicts, n-1)
	}
	if h.requests.count() != 1 {
		t.Errorf("rows = %d, want 1", h.requests.count())
	}
	starts, _, cancels := h.gw.counts()
	if cancels != starts-1 {
		t.Errorf("every losing provider request should be cancelled: starts = %d, cancels = %d", starts, cancels)
	}
}

func TestConfirmOTP_Validation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		id   string
		code string
	}{
		{"empty id", "", testCode},
		{"short code", "r1", "123"},
		{"long code", "r1", "1234567"},
		{"letters", "r1", "12a4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.svc.ConfirmOTP(context.Background(), tt.id, tt.code); KindOf(err) != KindValidation {
				t.Fatalf("kind = %v, want validation (err %v)", KindOf(err), err)
			}
		})
	}
}

func TestConfirmOTP_UnknownRequest(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc.ConfirmOTP(context.Background(), "nope", testCode); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("err = %v, want ErrRequestNotFound", err)
	}
}

func TestConfirmOTP_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, _ := h.svc.RequestOTP(ctx, testPhone)

	for i := 0; i < 2; i++ {
		ok, err := h.svc.ConfirmOTP(ctx, id, testCode)
		if err != nil || !ok {
			t.Fatalf("ConfirmOTP #%d = %v, %v", i+1, ok, err)
		}
	}
	if _, checks, _ := h.gw.counts(); checks != 1 {
		t.Errorf("gateway checks = %d, want 1", checks)
	}
}

func TestConfirmOTP_WrongCodeLeavesRequestUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, _ := h.svc.RequestOTP(ctx, testPhone)
	before, _ := h.requests.GetByProviderRequestID(ctx, id)

	h.advance(time.Minute)
	ok, err := h.svc.ConfirmOTP(ctx, id, "9999")
	if !errors.Is(err, ErrCodeMismatch) || ok {
		t.Fatalf("ConfirmOTP = %v, %v; want false, ErrCodeMismatch", ok, err)
	}
	after, _ := h.requests.GetByProviderRequestID(ctx, id)
	if after.Success {
		t.Error("wrong code must not flip success")
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) || !after.CreatedAt.Equal(before.CreatedAt) {
		t.Error("wrong code must not touch timestamps")
	}
	if _, err := h.svc.RequestOTP(ctx, testPhone); !errors.Is(err, ErrOutstandingRequest) {
		t.Errorf("request should still be outstanding after a wrong code, err = %v", err)
	}
	if ok, err := h.svc.ConfirmOTP(ctx, id, testCode); err != nil || !ok {
		t.Errorf("correct code after a wrong one = %v, %v", ok, err)
	}
}

func TestConfirmOTP_GatewayFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, _ := h.svc.RequestOTP(ctx, testPhone)
	h.gw.checkErr = gateway.ErrUpstream

	if _, err := h.svc.ConfirmOTP(ctx, id, testCode); KindOf(err) != KindUpstream {
		t.Fatalf("kind = %v, want upstream (err %v)", KindOf(err), err)
	}
	got, _ := h.requests.GetByProviderRequestID(ctx, id)
	if got.Success {
		t.Error("failed check must not flip success")
	}
}

func TestConfirmOTP_SetsUpdatedAt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, _ := h.svc.RequestOTP(ctx, testPhone)
	h.advance(3 * time.Minute)
	if _, err := h.svc.ConfirmOTP(ctx, id, testCode); err != nil {
		t.Fatalf("ConfirmOTP: %v", err)
	}
	got, _ := h.requests.GetByProviderRequestID(ctx, id)
	if !got.UpdatedAt.Equal(h.now) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, h.now)
	}
}

func TestFinishCalls_RequireVerification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "1112223333", "1234")
	id, _ := h.svc.RequestOTP(ctx, testPhone)

	if _, err := h.svc.ResolveAccountStatus(ctx, id, testPhone); !errors.Is(err, ErrNotVerified) {
		t.Errorf("ResolveAccountStatus err = %v, want ErrNotVerified", err)
	}
	if _, err := h.svc.FinishWithPIN(ctx, testPhone, id, "1234"); !errors.Is(err, ErrNotVerified) {
		t.Errorf("FinishWithPIN err = %v, want ErrNotVerified", err)
	}
	if _, err := h.svc.FinishWithNewAccount(ctx, testPhone, id, NewAccount{Name: "Alice", UserType: "vegan"}); !errors.Is(err, ErrNotVerified) {
		t.Errorf("FinishWithNewAccount err = %v, want ErrNotVerified", err)
	}
	if h.requests.count() != 1 {
		t.Error("precondition failures must not mutate the request")
	}
}

func TestFinishCalls_PreconditionOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, _ := h.svc.RequestOTP(ctx, testPhone)

	if _, err := h.svc.ResolveAccountStatus(ctx, "missing", testPhone); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("unknown request err = %v, want ErrRequestNotFound", err)
	}
	// Phone mismatch is reported before the verification check.
	if _, err := h.svc.ResolveAccountStatus(ctx, id, "1112223333"); !errors.Is(err, ErrPhoneMismatch) {
		t.Errorf("other phone err = %v, want ErrPhoneMismatch", err)
	}
	if _, err := h.svc.FinishWithPIN(ctx, "1112223333", id, "1234"); !errors.Is(err, ErrPhoneMismatch) {
		t.Errorf("FinishWithPIN other phone err = %v, want ErrPhoneMismatch", err)
	}
}

func TestFinishCalls_ExpireAfterValidityWindow(t *testing.T) {
	calls := map[string]func(s *Service, id string) error{
		"ResolveAccountStatus": func(s *Service, id string) error {
			_, err := s.ResolveAccountStatus(context.Background(), id, testPhone)
			return err
		},
		"FinishWithPIN": func(s *Service, id string) error {
			_, err := s.FinishWithPIN(context.Background(), testPhone, id, "1234")
			return err
		},
		"FinishWithNewAccount": func(s *Service, id string) error {
			_, err := s.FinishWithNewAccount(context.Background(), testPhone, id, NewAccount{Name: "Alice", UserType: "vegan"})
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			id := h.verifiedRequest(t, testPhone)
			h.advance(15*time.Minute + time.Second)

			if err := call(h.svc, id); !errors.Is(err, ErrRequestExpired) {
				t.Fatalf("err = %v, want ErrRequestExpired", err)
			}
			if h.requests.count() != 0 {
				t.Error("expired request should be deleted")
			}
			if h.sessions.issuedCount() != 0 {
				t.Error("no session should be issued")
			}
		})
	}
}

func TestResolveAccountStatus_ValidAtWindowEdge(t *testing.T) {
	h := newHarness(t)
	id := h.verifiedRequest(t, testPhone)
	h.advance(15 * time.Minute)

	status, err := h.svc.ResolveAccountStatus(context.Background(), id, testPhone)
	if err != nil {
		t.Fatalf("ResolveAccountStatus at exactly 15m: %v", err)
	}
	if status.AccountExists {
		t.Error("AccountExists should be false")
	}
	if h.requests.count() != 1 {
		t.Error("ResolveAccountStatus must not mutate the request")
	}
}

func TestFinishWithNewAccount_AccountExists(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, testPhone, "")
	id := h.verifiedRequest(t, testPhone)

	_, err := h.svc.FinishWithNewAccount(context.Background(), testPhone, id, NewAccount{Name: "Alice", UserType: "vegan"})
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("err = %v, want ErrAccountExists", err)
	}
	if h.requests.count() != 1 {
		t.Error("a rejected finish must not consume the request")
	}
}

func TestFinishWithPIN_AccountNotFound(t *testing.T) {
	h := newHarness(t)
	id := h.verifiedRequest(t, testPhone)

	if _, err := h.svc.FinishWithPIN(context.Background(), testPhone, id, "1234"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestFinishWithPIN_NoPINSet(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, testPhone, "")
	id := h.verifiedRequest(t, testPhone)

	if _, err := h.svc.FinishWithPIN(context.Background(), testPhone, id, "1234"); !errors.Is(err, ErrPinMismatch) {
		t.Fatalf("err = %v, want ErrPinMismatch", err)
	}
}

func TestFinishWithNewAccount_ProfileValidation(t *testing.T) {
	long := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" // 51
	tests := []struct {
		name    string
		profile NewAccount
		reason  string
	}{
		{"empty name", NewAccount{Name: "", UserType: "vegan"}, "InvalidName"},
		{"long name", NewAccount{Name: long, UserType: "vegan"}, "InvalidName"},
		{"empty promo", NewAccount{Name: "Alice", PromoCode: strPtr(""), UserType: "vegan"}, "InvalidPromoCode"},
		{"long promo", NewAccount{Name: "Alice", PromoCode: strPtr(long), UserType: "vegan"}, "InvalidPromoCode"},
		{"bad type", NewAccount{Name: "Alice", UserType: "omnivore"}, "InvalidUserType"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.FinishWithNewAccount(context.Background(), testPhone, "r1", tt.profile)
			var se *Error
			if !errors.As(err, &se) || se.Kind != KindValidation || se.Reason != tt.reason {
				t.Fatalf("err = %v, want validation %s", err, tt.reason)
			}
		})
	}
}

func TestScenario_NewAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id, err := h.svc.RequestOTP(ctx, "0987654321")
	if err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	if id != "r1" {
		t.Fatalf("request id = %q, want r1", id)
	}
	ok, err := h.svc.ConfirmOTP(ctx, "r1", "1234")
	if err != nil || !ok {
		t.Fatalf("ConfirmOTP = %v, %v", ok, err)
	}
	status, err := h.svc.ResolveAccountStatus(ctx, "r1", "0987654321")
	if err != nil {
		t.Fatalf("ResolveAccountStatus: %v", err)
	}
	if status.AccountExists || status.RequestID != "r1" || status.PhoneNumber != "0987654321" {
		t.Fatalf("status = %+v", status)
	}
	sess, err := h.svc.FinishWithNewAccount(ctx, "0987654321", "r1", NewAccount{Name: "Alice", UserType: "vegan"})
	if err != nil {
		t.Fatalf("FinishWithNewAccount: %v", err)
	}
	if sess.Key == "" {
		t.Fatal("session key should be returned")
	}

	u, _ := h.users.GetByPhone(ctx, "0987654321")
	if u == nil {
		t.Fatal("user row should exist")
	}
	if u.Name != "Alice" || u.ExtraInfo.UserType != userdomain.UserTypeVegan || u.ExtraInfo.PromoCode != "" {
		t.Errorf("user = %+v", u)
	}
	if u.PINHash != "" {
		t.Error("new account should have no PIN")
	}
	if sess.UserID != u.ID {
		t.Errorf("session user = %q, want %q", sess.UserID, u.ID)
	}
	if h.requests.count() != 0 {
		t.Error("finish should consume the verification request")
	}
	if _, err := h.svc.FinishWithNewAccount(ctx, "0987654321", "r1", NewAccount{Name: "Alice", UserType: "vegan"}); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("replayed finish err = %v, want ErrRequestNotFound", err)
	}
}

func TestScenario_ExistingAccountWithPIN(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, testPhone, "4321")
	id := h.verifiedRequest(t, testPhone)

	status, err := h.svc.ResolveAccountStatus(ctx, id, testPhone)
	if err != nil {
		t.Fatalf("ResolveAccountStatus: %v", err)
	}
	if !status.AccountExists {
		t.Fatal("AccountExists should be true")
	}

	_, err = h.svc.FinishWithPIN(ctx, testPhone, id, "1111")
	if !errors.Is(err, ErrPinMismatch) || KindOf(err) != KindUnauthorized {
		t.Fatalf("wrong pin err = %v, want Unauthorized PinMismatch", err)
	}
	if h.requests.count() != 1 {
		t.Fatal("a wrong PIN must not consume the request")
	}

	sess, err := h.svc.FinishWithPIN(ctx, testPhone, id, "4321")
	if err != nil {
		t.Fatalf("FinishWithPIN: %v", err)
	}
	if sess.Key == "" || sess.UserID != user.ID {
		t.Fatalf("session = %+v", sess)
	}
	if h.sessions.issuedCount() != 1 {
		t.Errorf("issued = %d, want 1", h.sessions.issuedCount())
	}
	if _, err := h.svc.FinishWithPIN(ctx, testPhone, id, "4321"); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("replayed finish err = %v, want ErrRequestNotFound", err)
	}
}

func TestSetPIN_EnablesLoginWithPIN(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := h.verifiedRequest(t, testPhone)
	sess, err := h.svc.FinishWithNewAccount(ctx, testPhone, id, NewAccount{Name: "Alice", PromoCode: strPtr("WELCOME"), UserType: "exploring"})
	if err != nil {
		t.Fatalf("FinishWithNewAccount: %v", err)
	}
	if err := h.svc.SetPIN(ctx, sess.UserID, "12"); KindOf(err) != KindValidation {
		t.Fatalf("SetPIN invalid kind = %v", KindOf(err))
	}
	if err := h.svc.SetPIN(ctx, sess.UserID, "567890"); err != nil {
		t.Fatalf("SetPIN: %v", err)
	}

	h.advance(11 * time.Minute)
	id2 := h.verifiedRequest(t, testPhone)
	if _, err := h.svc.FinishWithPIN(ctx, testPhone, id2, "567890"); err != nil {
		t.Fatalf("FinishWithPIN after SetPIN: %v", err)
	}
}

func TestFinishWithNewAccount_FailedWriteKeepsRequest(t *testing.T) {
	errDB := errors.New("connection reset")
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"user insert fails", func(h *harness) { h.users.createErr = errDB }},
		{"session insert fails", func(h *harness) { h.sessions.issueErr = errDB }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			id := h.verifiedRequest(t, testPhone)
			profile := NewAccount{Name: "Alice", UserType: "vegan"}

			tt.setup(h)
			if _, err := h.svc.FinishWithNewAccount(ctx, testPhone, id, profile); !errors.Is(err, errDB) {
				t.Fatalf("err = %v, want %v", err, errDB)
			}
			if h.requests.count() != 1 {
				t.Fatal("request should survive a failed finish")
			}
			if h.users.count() != 0 {
				t.Fatal("no account should be left behind by a failed finish")
			}

			h.users.createErr = nil
			h.sessions.issueErr = nil
			sess, err := h.svc.FinishWithNewAccount(ctx, testPhone, id, profile)
			if err != nil {
				t.Fatalf("retry: %v", err)
			}
			if sess.Key == "" || h.users.count() != 1 || h.requests.count() != 0 {
				t.Errorf("retry left users=%d requests=%d", h.users.count(), h.requests.count())
			}
		})
	}
}

func TestFinishWithPIN_FailedSessionKeepsRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, testPhone, "4321")
	id := h.verifiedRequest(t, testPhone)

	errDB := errors.New("connection reset")
	h.sessions.issueErr = errDB
	if _, err := h.svc.FinishWithPIN(ctx, testPhone, id, "4321"); !errors.Is(err, errDB) {
		t.Fatalf("err = %v, want %v", err, errDB)
	}
	if h.requests.count() != 1 {
		t.Fatal("request should survive a failed session insert")
	}

	h.sessions.issueErr = nil
	if _, err := h.svc.FinishWithPIN(ctx, testPhone, id, "4321"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if h.sessions.issuedCount() != 1 {
		t.Errorf("issued = %d, want 1", h.sessions.issuedCount())
	}
}

func TestFinishWithNewAccount_DuplicateInsertKeepsRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.verifiedRequest(t, testPhone)

	// A concurrent signup inserts the phone after the existence check.
	h.users.createErr = userrepo.ErrDuplicatePhone
	if _, err := h.svc.FinishWithNewAccount(ctx, testPhone, id, NewAccount{Name: "Alice", UserType: "vegan"}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("err = %v, want ErrAccountExists", err)
	}
	if h.requests.count() != 1 {
		t.Error("request should survive a duplicate account insert")
	}
}

func TestSetPIN_ReplacesHash(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.seedUser(t, testPhone, "")

	if err := h.svc.SetPIN(ctx, u.ID, "1234"); err != nil {
		t.Fatalf("SetPIN: %v", err)
	}
	got, _ := h.users.GetByID(ctx, u.ID)
	if got == nil || !got.HasPIN() {
		t.Fatal("user should have a PIN after SetPIN")
	}
	if !h.hasher.Matches(got.PINHash, []byte("1234")) {
		t.Error("stored hash should match the new PIN")
	}
	if err := h.svc.SetPIN(ctx, u.ID, "5678"); err != nil {
		t.Fatalf("SetPIN again: %v", err)
	}
	got, _ = h.users.GetByID(ctx, u.ID)
	if !h.hasher.Matches(got.PINHash, []byte("5678")) {
		t.Error("second SetPIN should replace the hash")
	}
}

func TestSetPIN_UnknownUser(t *testing.T) {
	h := newHarness(t)
	if err := h.svc.SetPIN(context.Background(), "ghost", "1234"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
	if err := h.svc.SetPIN(context.Background(), "", "1234"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("err = %v, want ErrInvalidSession", err)
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.svc.Logout(ctx, "u1", "sess-1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	n, err := h.svc.LogoutAll(ctx, "u1")
	if err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if n != 2 {
		t.Errorf("LogoutAll = %d, want 2", n)
	}
	if len(h.sessions.revoked) != 1 || h.sessions.revoked[0] != "sess-1" {
		t.Errorf("revoked = %v", h.sessions.revoked)
	}
	if len(h.sessions.revAll) != 1 || h.sessions.revAll[0] != "u1" {
		t.Errorf("revoked all = %v", h.sessions.revAll)
	}
	if err := h.svc.Logout(ctx, "u1", ""); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Logout without session err = %v", err)
	}
}

func TestNewService_DefaultsWindows(t *testing.T) {
	s := NewService(Config{}, nil, nil, nil, nil, nil, nil, nil, nil)
	if s.cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", s.cfg)
	}
}
