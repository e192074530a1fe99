// Package session keeps per-user pending-upload state in redis. The chat
// front-end collects a face image and a target file across several messages;
// the intermediate state lives here with a TTL instead of in process memory.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("session_store_not_configured")

const defaultTTL = 30 * time.Minute

// PendingUpload is the in-progress job submission for one user.
type PendingUpload struct {
	JobType           string `json:"job_type"`
	SourceFilePath    string `json:"source_file_path,omitempty"`
	TargetFilePath    string `json:"target_file_path,omitempty"`
	TelegramMessageID int64  `json:"telegram_message_id,omitempty"`
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Client *redis.Client `optional:"true"`
}

type Store struct {
	log    *zap.Logger
	client *redis.Client
	ttl    time.Duration
}

func NewStore(p Params) *Store {
	return &Store{
		log:    p.Log.Named("session"),
		client: p.Client,
		ttl:    defaultTTL,
	}
}

func (s *Store) Set(ctx context.Context, userID snowflake.ID, upload PendingUpload) error {
	if s == nil || s.client == nil {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(upload)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(userID), payload, s.ttl).Err()
}

// Get returns the pending upload, or nil when none exists or it expired.
func (s *Store) Get(ctx context.Context, userID snowflake.ID) (*PendingUpload, error) {
	if s == nil || s.client == nil {
		return nil, ErrNotConfigured
	}
	raw, err := s.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var upload PendingUpload
	if err := json.Unmarshal(raw, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}

func (s *Store) Clear(ctx context.Context, userID snowflake.ID) error {
	if s == nil || s.client == nil {
		return ErrNotConfigured
	}
	return s.client.Del(ctx, key(userID)).Err()
}

func key(userID snowflake.ID) string {
	return fmt.Sprintf("session:pending:%s", userID)
}

var Module = fx.Module("session",
	fx.Provide(NewStore),
)
