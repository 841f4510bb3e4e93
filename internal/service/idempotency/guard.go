// Package idempotency обслуживает ключи идемпотентности: повтор ответов и очистку просроченных записей.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// DefaultTTL определяет, сколько хранится ответ для повтора.
const DefaultTTL = 24 * time.Hour

// storeTimeout ограничивает запись результата, которая идёт уже вне контекста запроса.
const storeTimeout = 5 * time.Second

var (
	// ErrInProgress: запрос с тем же ключом ещё выполняется.
	ErrInProgress = errors.New("request with the same idempotency key is already processing")
	// ErrPayloadMismatch — ключ уже использован с другим телом запроса.
	ErrPayloadMismatch = errors.New("idempotency key is already used with different request payload")
)

// Response — сохранённый результат запроса. StatusCode >= 400 означает неуспех.
type Response struct {
	StatusCode int
	Body       []byte
	Replayed   bool
}

// Failed сообщает, был ли запрос завершён ошибкой.
func (r Response) Failed() bool {
	return r.StatusCode >= 400
}

// Guard выполняет обработчик не более одного раза на ключ и повторяет сохранённый ответ.
type Guard struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	now    func() time.Time
	logger *log.Entry
}

// GuardOption настраивает Guard.
type GuardOption func(*Guard)

func WithTTL(ttl time.Duration) GuardOption {
	return func(g *Guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

func WithGuardLogger(logger *log.Entry) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuard создаёт Guard поверх репозитория ключей.
func NewGuard(repo domain.IdempotencyRepository, opts ...GuardOption) *Guard {
	g := &Guard{
		repo:   repo,
		ttl:    DefaultTTL,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.WithField("component", "idempotency-guard"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequestHash строит отпечаток запроса: операция + канонический JSON тела.
func RequestHash(operation string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request for hashing: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{':'})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Do выполняет fn под ключом key. Ошибка fn сохраняется как ответ 500 без тела.
func (g *Guard) Do(ctx context.Context, key, requestHash string, fn func(ctx context.Context) (Response, error)) (Response, error) {
	key = strings.TrimSpace(key)

	record, err := g.repo.CreateProcessing(ctx, key, requestHash, g.now().Add(g.ttl))
	if err != nil {
		return g.replay(err, record)
	}

	entry := g.logger.WithField("idempotency_key", key)

	resp, runErr := fn(ctx)

	// Продажа могла закоммититься до отключения клиента: результат сохраняем даже при отменённом ctx,
	// иначе ключ останется в processing до истечения TTL.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	if runErr != nil {
		if markErr := g.repo.MarkFailed(storeCtx, key, nil, 500); markErr != nil {
			entry.WithError(markErr).Warn("failed to store idempotency failure")
		}
		return Response{}, runErr
	}

	mark := g.repo.MarkDone
	if resp.Failed() {
		mark = g.repo.MarkFailed
	}
	if markErr := mark(storeCtx, key, resp.Body, resp.StatusCode); markErr != nil {
		entry.WithError(markErr).Warn("failed to store idempotent response")
	}
	return resp, nil
}

func (g *Guard) replay(createErr error, record domain.IdempotencyRecord) (Response, error) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		return Response{}, ErrPayloadMismatch
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusProcessing:
			return Response{}, ErrInProgress
		case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
			code := record.HTTPStatus
			if code == 0 {
				code = 500
			}
			return Response{
				StatusCode: code,
				Body:       append([]byte(nil), record.ResponseBody...),
				Replayed:   true,
			}, nil
		default:
			return Response{}, fmt.Errorf("unknown idempotency record status %q", record.Status)
		}
	default:
		// Сюда же попадают ErrIdempotencyKeyRequired и ErrIdempotencyRequestHashRequired.
		return Response{}, createErr
	}
}
