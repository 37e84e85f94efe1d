package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stream-service/internal/websocket"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const streamTicketType = "stream"

// Ticket rejections are SessionErrors so the stream can echo them to the client
var (
	ErrInvalidTicket error = &websocket.SessionError{Reason: "invalid stream ticket"}
	ErrTicketUsed    error = &websocket.SessionError{Reason: "stream ticket already used"}
	ErrTicketExpired error = &websocket.SessionError{Reason: "stream ticket expired"}
)

// TicketStore records consumed ticket ids.
type TicketStore interface {
	ConsumeTicket(ctx context.Context, ticketID string, ttl time.Duration) (bool, error)
}

type ticketClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// SessionService issues short-lived, single-use stream tickets and resolves
// them back to a user id when a connection initializes.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	store  TicketStore
	now    func() time.Time
}

func NewSessionService(secret string, ttl time.Duration, store TicketStore) *SessionService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
		now:    time.Now,
	}
}

func (s *SessionService) IssueTicket(ctx context.Context, userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrInvalidTicket
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := ticketClaims{
		Type: streamTicketType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign ticket: %w", err)
	}
	return token, expiresAt, nil
}

func (s *SessionService) ResolveSessionToken(ctx context.Context, token string) (string, error) {
	claims := &ticketClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTicketExpired
		}
		return "", ErrInvalidTicket
	}
	if !parsed.Valid || claims.Type != streamTicketType || claims.Subject == "" || claims.ID == "" {
		return "", ErrInvalidTicket
	}

	// Keep the consumed marker at least as long as the ticket could still verify
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	fresh, err := s.store.ConsumeTicket(ctx, claims.ID, ttl)
	if err != nil {
		return "", fmt.Errorf("consume ticket: %w", err)
	}
	if !fresh {
		return "", ErrTicketUsed
	}

	return claims.Subject, nil
}
