package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jrsteele09/go-match-client/token"
	"github.com/redis/go-redis/v9"
)

const (
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldExpiresIn    = "expires_in"
	fieldExpiresAt    = "expires_at"
)

var _ token.Store = (*Store)(nil)

// Store keeps the credential set in one Redis hash so every write and clear is a single command.
type Store struct {
	client redis.UniversalClient
	key    string
}

func New(client redis.UniversalClient, key string) *Store {
	return &Store{
		client: client,
		key:    key,
	}
}

func (s *Store) Get(ctx context.Context) (token.Credentials, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return token.Credentials{}, fmt.Errorf("redisstore: get %s: %w", s.key, err)
	}
	if len(fields) == 0 {
		return token.Credentials{}, token.ErrNotFound
	}

	creds := token.Credentials{
		AccessToken:  fields[fieldAccessToken],
		RefreshToken: fields[fieldRefreshToken],
	}
	if v := fields[fieldExpiresIn]; v != "" {
		if creds.ExpiresIn, err = strconv.Atoi(v); err != nil {
			return token.Credentials{}, fmt.Errorf("redisstore: parse %s: %w", fieldExpiresIn, err)
		}
	}
	if v := fields[fieldExpiresAt]; v != "" {
		if creds.ExpiresAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return token.Credentials{}, fmt.Errorf("redisstore: parse %s: %w", fieldExpiresAt, err)
		}
	}
	return creds, nil
}

func (s *Store) GetAccessToken(ctx context.Context) (string, error) {
	return token.AccessToken(ctx, s)
}

func (s *Store) GetRefreshToken(ctx context.Context) (string, error) {
	return token.RefreshToken(ctx, s)
}

// SetCredentials replaces the hash in one MULTI/EXEC so a reader never sees a mix of old and new fields.
func (s *Store) SetCredentials(ctx context.Context, creds token.Credentials) error {
	expiresAt := ""
	if !creds.ExpiresAt.IsZero() {
		expiresAt = creds.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key, map[string]interface{}{
			fieldAccessToken:  creds.AccessToken,
			fieldRefreshToken: creds.RefreshToken,
			fieldExpiresIn:    creds.ExpiresIn,
			fieldExpiresAt:    expiresAt,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: set %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) ClearCredentials(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redisstore: clear %s: %w", s.key, err)
	}
	return nil
}
