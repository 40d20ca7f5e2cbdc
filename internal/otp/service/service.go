// Package service implements the phone OTP login flow: start a provider challenge,
// confirm the code, resolve whether the phone has an account, then finish with a
// PIN or a new account to obtain a session key.
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goodies-auth/internal/gateway"
	"goodies-auth/internal/security"
	sessiondomain "goodies-auth/internal/session/domain"
	"goodies-auth/internal/telemetry"
	userdomain "goodies-auth/internal/user/domain"
	userrepo "goodies-auth/internal/user/repository"
	"goodies-auth/internal/verification/domain"
	verificationrepo "goodies-auth/internal/verification/repository"
)

const eventSource = "auth"

// RequestRepo is the verification request store needed by the service.
type RequestRepo interface {
	GetByProviderRequestID(ctx context.Context, providerRequestID string) (*domain.Request, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Request, error)
	Create(ctx context.Context, r *domain.Request) error
	MarkSuccess(ctx context.Context, providerRequestID string, at time.Time) (bool, error)
	Delete(ctx context.Context, providerRequestID string) (bool, error)
}

// UserRepo is the minimal user repository needed by the service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByPhone(ctx context.Context, phone string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	UpdatePINHash(ctx context.Context, id, pinHash string, at time.Time) (bool, error)
}

// SessionIssuer issues and revokes session keys.
type SessionIssuer interface {
	Issue(ctx context.Context, userID string) (string, *sessiondomain.Session, error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeAll(ctx context.Context, userID string) (int, error)
}

// FinishStores are the stores a finish call writes through.
type FinishStores struct {
	Requests RequestRepo
	Users    UserRepo
	Sessions SessionIssuer
}

// Transactor runs fn with stores bound to one transaction. fn's writes are
// committed together when it returns nil and discarded otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(FinishStores) error) error
}

// Config holds the time windows of the flow.
type Config struct {
	// OutstandingWindow is how long a started request blocks another start for the same phone.
	OutstandingWindow time.Duration
	// ValidityWindow is how long a confirmed request may be used to finish.
	ValidityWindow time.Duration
	// GatewayTimeout bounds each provider call.
	GatewayTimeout time.Duration
}

// DefaultConfig returns the 10m / 15m / 10s windows.
func DefaultConfig() Config {
	return Config{
		OutstandingWindow: 10 * time.Minute,
		ValidityWindow:    15 * time.Minute,
		GatewayTimeout:    10 * time.Second,
	}
}

// AccountStatus is the result of ResolveAccountStatus.
type AccountStatus struct {
	RequestID     string
	PhoneNumber   string
	AccountExists bool
}

// NewAccount is the profile submitted by FinishWithNewAccount.
type NewAccount struct {
	Name      string
	PromoCode *string
	UserType  string
}

// Session is an issued session key. Key is only available here.
type Session struct {
	Key       string
	SessionID string
	UserID    string
}

// Service is the OTP state machine. It is safe for concurrent use; all state lives in the repositories.
type Service struct {
	cfg      Config
	requests RequestRepo
	users    UserRepo
	sessions SessionIssuer
	tx       Transactor
	gateway  gateway.Gateway
	hasher   *security.Hasher
	emitter  telemetry.EventEmitter
	logger   *zap.Logger
	now      func() time.Time
}

// NewService returns a Service with the given dependencies. emitter and logger may be nil.
// With a nil tx the finish calls write through requests, users and sessions directly
// and a failure part way through is not rolled back.
func NewService(
	cfg Config,
	requests RequestRepo,
	users UserRepo,
	sessions SessionIssuer,
	tx Transactor,
	gw gateway.Gateway,
	hasher *security.Hasher,
	emitter telemetry.EventEmitter,
	logger *zap.Logger,
) *Service {
	def := DefaultConfig()
	if cfg.OutstandingWindow <= 0 {
		cfg.OutstandingWindow = def.OutstandingWindow
	}
	if cfg.ValidityWindow <= 0 {
		cfg.ValidityWindow = def.ValidityWindow
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = def.GatewayTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:      cfg,
		requests: requests,
		users:    users,
		sessions: sessions,
		tx:       tx,
		gateway:  gw,
		hasher:   hasher,
		emitter:  emitter,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RequestOTP starts a provider challenge for phone and returns the provider request id.
// A request younger than the outstanding window blocks a new one; an older one is replaced.
func (s *Service) RequestOTP(ctx context.Context, phone string) (string, error) {
	if err := validatePhone(phone); err != nil {
		return "", err
	}
	log := s.logger.With(zap.String("phone", maskPhone(phone)))
	now := s.now()

	existing, err := s.requests.GetByPhone(ctx, phone)
	if err != nil {
		return "", err
	}
	if existing != nil {
		if existing.Outstanding(now, s.cfg.OutstandingWindow) {
			log.Info("otp request rejected: outstanding request", zap.String("request_id", existing.ProviderRequestID))
			return "", ErrOutstandingRequest
		}
		if _, err := s.requests.Delete(ctx, existing.ProviderRequestID); err != nil {
			return "", err
		}
		if !existing.Success {
			s.cancel(ctx, existing.ProviderRequestID)
		}
		log.Debug("superseded stale otp request", zap.String("request_id", existing.ProviderRequestID))
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	requestID, err := s.gateway.Start(gctx, phone)
	cancel()
	if err != nil {
		log.Warn("gateway start failed", zap.Error(err))
		return "", upstreamError(err)
	}

	req := &domain.Request{
		ProviderRequestID: requestID,
		PhoneNumber:       phone,
		Success:           false,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		s.cancel(ctx, requestID)
		if errors.Is(err, verificationrepo.ErrDuplicatePhone) {
			log.Info("otp request lost race to a concurrent request")
			return "", ErrOutstandingRequest
		}
		return "", err
	}

	log.Info("otp requested", zap.String("request_id", requestID))
	s.emit(ctx, &telemetry.Event{Type: telemetry.EventOTPRequested, RequestID: requestID, Phone: maskPhone(phone)})
	return requestID, nil
}

// ConfirmOTP checks code with the provider and marks the request verified.
// Confirming an already verified request succeeds without calling the provider.
func (s *Service) ConfirmOTP(ctx context.Context, requestID, code string) (bool, error) {
	if err := validateRequestID(requestID); err != nil {
		return false, err
	}
	if err := validateCode(code); err != nil {
		return false, err
	}
	log := s.logger.With(zap.String("request_id", requestID))

	req, err := s.requests.GetByProviderRequestID(ctx, requestID)
	if err != nil {
		return false, err
	}
	if req == nil {
		return false, ErrRequestNotFound
	}
	if req.Success {
		return true, nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	err = s.gateway.Check(gctx, requestID, code)
	cancel()
	if err != nil {
		if errors.Is(err, gateway.ErrCodeMismatch) {
			log.Info("otp code rejected")
			s.emit(ctx, &telemetry.Event{Type: telemetry.EventOTPRejected, RequestID: requestID, Phone: maskPhone(req.PhoneNumber)})
			return false, ErrCodeMismatch
		}
		log.Warn("gateway check failed", zap.Error(err))
		return false, upstreamError(err)
	}

	flipped, err := s.requests.MarkSuccess(ctx, requestID, s.now())
	if err != nil {
		return false, err
	}
	if !flipped {
		// A concurrent confirm won, or the row was removed meanwhile.
		cur, err := s.requests.GetByProviderRequestID(ctx, requestID)
		if err != nil {
			return false, err
		}
		if cur == nil || !cur.Success {
			return false, ErrRequestNotFound
		}
		return true, nil
	}

	log.Info("otp confirmed")
	s.emit(ctx, &telemetry.Event{Type: telemetry.EventOTPConfirmed, RequestID: requestID, Phone: maskPhone(req.PhoneNumber)})
	return true, nil
}

// ResolveAccountStatus reports whether the verified phone already has an account.
func (s *Service) ResolveAccountStatus(ctx context.Context, requestID, phone string) (*AccountStatus, error) {
	if err := validateRequestID(requestID); err != nil {
		return nil, err
	}
	if err := validatePhone(phone); err != nil {
		return nil, err
	}
	if _, err := s.verified(ctx, requestID, phone); err != nil {
		return nil, err
	}
	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	return &AccountStatus{
		RequestID:     requestID,
		PhoneNumber:   phone,
		AccountExists: u != nil,
	}, nil
}

// FinishWithPIN logs into the existing account of phone and consumes the request.
func (s *Service) FinishWithPIN(ctx context.Context, phone, requestID, pin string) (*Session, error) {
	if err := validatePhone(phone); err != nil {
		return nil, err
	}
	if err := validateRequestID(requestID); err != nil {
		return nil, err
	}
	if err := validatePIN(pin); err != nil {
		return nil, err
	}
	if _, err := s.verified(ctx, requestID, phone); err != nil {
		return nil, err
	}

	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrAccountNotFound
	}
	if !u.HasPIN() || !s.hasher.Matches(u.PINHash, []byte(pin)) {
		s.logger.Info("pin rejected", zap.String("user_id", u.ID), zap.Bool("has_pin", u.HasPIN()))
		s.emit(ctx, &telemetry.Event{Type: telemetry.EventPINRejected, UserID: u.ID, RequestID: requestID})
		return nil, ErrPinMismatch
	}

	var out *Session
	err = s.inTx(ctx, func(st FinishStores) error {
		if err := consume(ctx, st.Requests, requestID); err != nil {
			return err
		}
		out, err = issue(ctx, st.Sessions, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.issued(ctx, out, requestID, "pin")
	return out, nil
}

// FinishWithNewAccount creates an account for phone and consumes the request.
func (s *Service) FinishWithNewAccount(ctx context.Context, phone, requestID string, profile NewAccount) (*Session, error) {
	if err := validatePhone(phone); err != nil {
		return nil, err
	}
	if err := validateRequestID(requestID); err != nil {
		return nil, err
	}
	if err := validateProfile(profile); err != nil {
		return nil, err
	}
	if _, err := s.verified(ctx, requestID, phone); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	now := s.now()
	u := &userdomain.User{
		ID:          uuid.New().String(),
		PhoneNumber: phone,
		Name:        profile.Name,
		ExtraInfo:   userdomain.ExtraInfo{UserType: userdomain.UserType(profile.UserType)},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if profile.PromoCode != nil {
		u.ExtraInfo.PromoCode = *profile.PromoCode
	}
	if err := u.Validate(); err != nil {
		return nil, validationError("InvalidAccount")
	}

	var out *Session
	err = s.inTx(ctx, func(st FinishStores) error {
		if err := consume(ctx, st.Requests, requestID); err != nil {
			return err
		}
		if err := st.Users.Create(ctx, u); err != nil {
			if errors.Is(err, userrepo.ErrDuplicatePhone) {
				return ErrAccountExists
			}
			return err
		}
		out, err = issue(ctx, st.Sessions, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account created", zap.String("user_id", u.ID), zap.String("phone", maskPhone(phone)))
	s.emit(ctx, &telemetry.Event{Type: telemetry.EventAccountCreated, UserID: u.ID, RequestID: requestID, Phone: maskPhone(phone)})
	s.issued(ctx, out, requestID, "new_account")
	return out, nil
}

// SetPIN sets the PIN of userID so later logins can finish with it.
func (s *Service) SetPIN(ctx context.Context, userID, pin string) error {
	if userID == "" {
		return ErrInvalidSession
	}
	if err := validatePIN(pin); err != nil {
		return err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrAccountNotFound
	}
	hash, err := s.hasher.Hash([]byte(pin))
	if err != nil {
		return err
	}
	ok, err := s.users.UpdatePINHash(ctx, u.ID, hash, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccountNotFound
	}
	first := !u.HasPIN()
	s.logger.Info("pin set", zap.String("user_id", u.ID), zap.Bool("first_pin", first))
	s.emit(ctx, &telemetry.Event{
		Type:     telemetry.EventPINSet,
		UserID:   u.ID,
		Metadata: map[string]string{"first_pin": strconv.FormatBool(first)},
	})
	return nil
}

// Logout revokes a single session.
func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	s.emit(ctx, &telemetry.Event{Type: telemetry.EventSessionRevoked, UserID: userID, SessionID: sessionID})
	return nil
}

// LogoutAll revokes every session of userID and returns how many were removed.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidSession
	}
	n, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("all sessions revoked", zap.String("user_id", userID), zap.Int("count", n))
	s.emit(ctx, &telemetry.Event{Type: telemetry.EventSessionsRevoked, UserID: userID})
	return n, nil
}

// verified enforces, in order: the request exists, belongs to phone, is confirmed,
// and is inside the validity window. An expired request is deleted.
func (s *Service) verified(ctx context.Context, requestID, phone string) (*domain.Request, error) {
	req, err := s.requests.GetByProviderRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.PhoneNumber != phone {
		return nil, ErrPhoneMismatch
	}
	switch domain.StateOf(req, s.now(), s.cfg.ValidityWindow) {
	case domain.StatePending:
		return nil, ErrNotVerified
	case domain.StateExpired:
		if _, err := s.requests.Delete(ctx, requestID); err != nil {
			return nil, err
		}
		s.logger.Info("verification expired", zap.String("request_id", requestID))
		s.emit(ctx, &telemetry.Event{Type: telemetry.EventRequestExpired, RequestID: requestID, Phone: maskPhone(phone)})
		return nil, ErrRequestExpired
	}
	return req, nil
}

// inTx runs fn on transaction-bound stores, or on the service's own stores when no Transactor is set.
func (s *Service) inTx(ctx context.Context, fn func(FinishStores) error) error {
	if s.tx == nil {
		return fn(FinishStores{Requests: s.requests, Users: s.users, Sessions: s.sessions})
	}
	return s.tx.InTx(ctx, fn)
}

// consume deletes the request so only one finish call can use it. Only the
// delete that removed the row may go on to issue a session.
func consume(ctx context.Context, requests RequestRepo, requestID string) error {
	ok, err := requests.Delete(ctx, requestID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRequestNotFound
	}
	return nil
}

func issue(ctx context.Context, sessions SessionIssuer, userID string) (*Session, error) {
	key, sess, err := sessions.Issue(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Session{Key: key, SessionID: sess.ID, UserID: userID}, nil
}

func (s *Service) issued(ctx context.Context, out *Session, requestID, via string) {
	s.logger.Info("session issued", zap.String("user_id", out.UserID), zap.String("session_id", out.SessionID))
	s.emit(ctx, &telemetry.Event{
		Type:      telemetry.EventSessionIssued,
		UserID:    out.UserID,
		SessionID: out.SessionID,
		RequestID: requestID,
		Metadata:  map[string]string{"via": via},
	})
}

// cancel asks the provider to drop requestID. Failures are logged only.
func (s *Service) cancel(ctx context.Context, requestID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.GatewayTimeout)
	defer cancel()
	if err := s.gateway.Cancel(cctx, requestID); err != nil {
		s.logger.Debug("gateway cancel failed", zap.String("request_id", requestID), zap.Error(err))
	}
}

func (s *Service) emit(ctx context.Context, ev *telemetry.Event) {
	if s.emitter == nil {
		return
	}
	ev.Source = eventSource
	telemetry.EmitAsync(s.emitter, ctx, ev)
}
