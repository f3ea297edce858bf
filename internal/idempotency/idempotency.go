package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/debt-tracker/pkg/logger"
	"github.com/nimasrn/debt-tracker/pkg/redis"
)

var (
	// ErrInFlight means another request holding the same key has not finished.
	ErrInFlight = errors.New("request with this idempotency key is in progress")
	// ErrKeyReused means the key was completed for a different payload.
	ErrKeyReused = errors.New("idempotency key reused with a different payload")
)

type Config struct {
	LockTTL     time.Duration
	ResponseTTL time.Duration
	KeyPrefix   string
}

func DefaultConfig() Config {
	return Config{
		LockTTL:     30 * time.Second,
		ResponseTTL: 24 * time.Hour,
		KeyPrefix:   "idem:",
	}
}

// Response is what gets replayed to a retried request.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

// Claim is held by the single request allowed to execute for a key.
type Claim struct {
	Key         string
	token       string
	fingerprint string
}

type Service struct {
	redis  redis.RedisAdapter
	config Config
}

func NewService(adapter redis.RedisAdapter, config Config) *Service {
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultConfig().LockTTL
	}
	if config.ResponseTTL <= 0 {
		config.ResponseTTL = DefaultConfig().ResponseTTL
	}
	return &Service{redis: adapter, config: config}
}

func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (s *Service) responseKey(key string) string { return s.config.KeyPrefix + "resp:" + key }
func (s *Service) lockKey(key string) string     { return s.config.KeyPrefix + "lock:" + key }

// Begin either returns a stored response to replay, or a claim that the
// caller must finish with Complete or Release.
func (s *Service) Begin(ctx context.Context, key string, payload []byte) (*Claim, *Response, error) {
	fp := Fingerprint(payload)

	stored, err := s.lookup(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	if stored != nil {
		if stored.Fingerprint != fp {
			return nil, nil, ErrKeyReused
		}
		logger.Info("[idempotency] replaying stored response", "key", key)
		return nil, stored, nil
	}

	token := uuid.NewString()
	acquired, err := s.redis.SetNX(ctx, s.lockKey(key), []byte(token), s.config.LockTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire idempotency lock: %w", err)
	}
	if !acquired {
		return nil, nil, ErrInFlight
	}

	// the previous holder may have completed between lookup and lock
	stored, err = s.lookup(ctx, key)
	if err != nil || stored != nil {
		_ = s.redis.Del(ctx, s.lockKey(key))
		if err != nil {
			return nil, nil, err
		}
		if stored.Fingerprint != fp {
			return nil, nil, ErrKeyReused
		}
		return nil, stored, nil
	}

	return &Claim{Key: key, token: token, fingerprint: fp}, nil, nil
}

func (s *Service) lookup(ctx context.Context, key string) (*Response, error) {
	raw, err := s.redis.Get(ctx, s.responseKey(key))
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return nil, nil
		}
		return nil, fmt.Errorf("read idempotency response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode idempotency response: %w", err)
	}
	return &resp, nil
}

// Complete stores resp for replay and frees the lock.
func (s *Service) Complete(ctx context.Context, claim *Claim, resp Response) error {
	resp.Fingerprint = claim.fingerprint
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.responseKey(claim.Key), raw, s.config.ResponseTTL); err != nil {
		return fmt.Errorf("store idempotency response: %w", err)
	}
	return s.Release(ctx, claim)
}

// Release frees the lock without storing anything, so a retry runs again.
// A lock that expired and was taken by another request is left alone.
func (s *Service) Release(ctx context.Context, claim *Claim) error {
	current, err := s.redis.Get(ctx, s.lockKey(claim.Key))
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return nil
		}
		return err
	}
	if string(current) != claim.token {
		logger.Warn("[idempotency] lock owned by another request, not releasing", "key", claim.Key)
		return nil
	}
	return s.redis.Del(ctx, s.lockKey(claim.Key))
}
