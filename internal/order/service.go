package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ishanbilolikar/pizza42-backend/internal/apperr"
	"github.com/ishanbilolikar/pizza42-backend/internal/auth"
	"github.com/ishanbilolikar/pizza42-backend/internal/idp"
	"github.com/ishanbilolikar/pizza42-backend/internal/logger"
)

const (
	metadataOrdersKey = "orders"

	MsgEmailNotVerified = "Please verify your email before placing an order. Check your inbox for the verification email."
	MsgMissingFields    = "Missing required fields"
	MsgFetchFailed      = "Failed to fetch user data"
)

// UserStore is the slice of the identity provider's management API that
// holds order history.
type UserStore interface {
	ServiceToken(ctx context.Context) (string, error)
	GetUserRecord(ctx context.Context, token, subject string) (*idp.UserRecord, error)
	PatchUserRecord(ctx context.Context, token, subject string, metadata any) error
}

// Metadata is what an order submission writes into app_metadata.
type Metadata struct {
	Orders        []Record `json:"orders"`
	TotalOrders   int      `json:"totalOrders"`
	LastOrderDate string   `json:"lastOrderDate"`
}

// Confirmation is returned for an accepted order.
type Confirmation struct {
	Record  Record
	Message string
}

type Service struct {
	users    UserStore
	capacity int
	now      func() time.Time
}

func NewService(users UserStore) *Service {
	return &Service{
		users:    users,
		capacity: HistoryCapacity,
		now:      time.Now,
	}
}

// Authorize applies the ordering policy: only callers with a verified
// email may order.
func (s *Service) Authorize(caller *auth.Identity) error {
	if caller == nil {
		return apperr.New(apperr.CodeUnauthenticated, "Not authenticated")
	}
	if !caller.EmailVerified {
		return apperr.New(apperr.CodeEmailNotVerified, MsgEmailNotVerified)
	}
	return nil
}

// Submit accepts an order for caller. Recording it in the caller's history
// is best effort: failures there are logged and never fail the order.
func (s *Service) Submit(ctx context.Context, caller *auth.Identity, p Payload) (*Confirmation, error) {
	if err := s.Authorize(caller); err != nil {
		return nil, err
	}
	if !p.Valid() {
		return nil, apperr.New(apperr.CodeInvalidPayload, MsgMissingFields)
	}

	rec := NewRecord(p, s.now())

	// Finish the write even if the client goes away mid-request.
	s.appendToHistory(context.WithoutCancel(ctx), caller.Subject, rec)

	return &Confirmation{
		Record:  rec,
		Message: fmt.Sprintf("Your %s pizza has been ordered!", p.PizzaName),
	}, nil
}

// appendToHistory is a read-modify-write on the user record without any
// concurrency check: two concurrent submissions for one user can drop one
// order from history. Last write wins.
func (s *Service) appendToHistory(ctx context.Context, subject string, rec Record) {
	fields := map[string]any{
		"sub":      subject,
		"order_id": rec.OrderID,
	}

	token, err := s.users.ServiceToken(ctx)
	if err != nil {
		fields["error"] = err.Error()
		logger.Error("order history not updated: no service token", fields)
		return
	}

	user, err := s.users.GetUserRecord(ctx, token, subject)
	if err != nil {
		fields["error"] = err.Error()
		logger.Error("order history not updated: user read failed", fields)
		return
	}

	existing, err := ordersFrom(user.AppMetadata)
	if err != nil {
		fields["error"] = err.Error()
		logger.Error("order history not updated: stored orders unreadable", fields)
		return
	}

	history := NewHistory(s.capacity, existing...)
	history.Append(rec)

	err = s.users.PatchUserRecord(ctx, token, subject, Metadata{
		Orders:        history.Records(),
		TotalOrders:   history.Len(),
		LastOrderDate: rec.Timestamp,
	})
	if err != nil {
		fields["error"] = err.Error()
		logger.Error("failed to update user profile", fields)
		return
	}

	fields["total_orders"] = history.Len()
	logger.Info("order history updated", fields)
}

// List returns the caller's stored orders, most recent first.
func (s *Service) List(ctx context.Context, subject string) ([]Record, error) {
	token, err := s.users.ServiceToken(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserRecord(ctx, token, subject)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUpstreamAuth, MsgFetchFailed, err)
	}

	existing, err := ordersFrom(user.AppMetadata)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, MsgFetchFailed, err)
	}
	if len(existing) == 0 {
		return []Record{}, nil
	}

	return NewHistory(len(existing), existing...).NewestFirst(), nil
}

func ordersFrom(metadata map[string]json.RawMessage) ([]Record, error) {
	raw, ok := metadata[metadataOrdersKey]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var orders []Record
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, fmt.Errorf("order: decode stored orders: %w", err)
	}
	return orders, nil
}
