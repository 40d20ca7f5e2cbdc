package devotp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goodies-auth/internal/gateway"
)

// codeTTL mirrors how long Vonage keeps a code valid.
const codeTTL = 5 * time.Minute

// Gateway is a gateway.Gateway that never sends SMS.
type Gateway struct {
	store      Store
	codeLength int
	logger     *zap.Logger
	nowF       func() time.Time
}

var _ gateway.Gateway = (*Gateway)(nil)

// NewGateway returns a dev gateway issuing codes of codeLength digits into store.
func NewGateway(store Store, codeLength int, logger *zap.Logger) *Gateway {
	if codeLength <= 0 {
		codeLength = 6
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		store:      store,
		codeLength: codeLength,
		logger:     logger,
		nowF:       func() time.Time { return time.Now().UTC() },
	}
}

// Start generates a code and a request id; the code is retrievable through DevService.GetOTP.
func (g *Gateway) Start(ctx context.Context, phone string) (string, error) {
	code, err := GenerateCode(g.codeLength)
	if err != nil {
		return "", err
	}
	requestID := uuid.New().String()
	g.store.Put(ctx, requestID, code, g.nowF().Add(codeTTL))
	g.logger.Info("dev otp issued", zap.String("request_id", requestID))
	return requestID, nil
}

// Check compares code with the stored one. An unknown or expired request is an upstream error,
// as the provider would report it.
func (g *Gateway) Check(ctx context.Context, requestID, code string) error {
	stored, ok := g.store.Get(ctx, requestID)
	if !ok {
		return gateway.ErrUpstream
	}
	if !codeEqual(code, stored) {
		return gateway.ErrCodeMismatch
	}
	g.store.Delete(ctx, requestID)
	return nil
}

func (g *Gateway) Cancel(ctx context.Context, requestID string) error {
	g.store.Delete(ctx, requestID)
	return nil
}
