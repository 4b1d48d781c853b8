package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Logical table names for local cache documents.
const (
	TableNotifications  = "notifications"
	TableSettings       = "settings"
	TableUpdates        = "tribunal_updates"
	TableTrackedNumbers = "tracked_numbers"
)

// FeedDocID is the document scope for the practice-wide tribunal feed,
// which is not owned by any single user.
const FeedDocID = "feed"

// DocStore is the local fallback tier: one JSON document per logical
// table, keyed per user. Reads of missing or malformed documents leave
// out untouched and return nil.
type DocStore interface {
	ReadDoc(ctx context.Context, userID, table string, out any) error
	WriteDoc(ctx context.Context, userID, table string, v any) error
	Users(ctx context.Context, table string) ([]string, error)
}

// LocalStore keeps fallback documents in Redis so the service keeps
// answering when the backend is unreachable.
type LocalStore struct {
	client *redis.Client
}

func NewLocalStore(addr, password string) (*LocalStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &LocalStore{client: rdb}, nil
}

func docKey(userID, table string) string {
	return fmt.Sprintf("lexhub:user:%s:%s", userID, table)
}

// ReadDoc loads one table document. A missing key or a document that no
// longer parses is treated as empty, never as an error.
func (s *LocalStore) ReadDoc(ctx context.Context, userID, table string, out any) error {
	if s == nil || s.client == nil {
		return nil
	}
	raw, err := s.client.Get(ctx, docKey(userID, table)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		// Corrupt shadow document: behave as if it were empty.
		return nil
	}
	return nil
}

func (s *LocalStore) WriteDoc(ctx context.Context, userID, table string, v any) error {
	if s == nil || s.client == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", table, err)
	}
	return s.client.Set(ctx, docKey(userID, table), raw, 0).Err()
}

// Users scans for every user id that has a document in the given table.
func (s *LocalStore) Users(ctx context.Context, table string) ([]string, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}
	pattern := fmt.Sprintf("lexhub:user:*:%s", table)
	var userIDs []string
	var cursor uint64

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			parts := strings.Split(key, ":")
			if len(parts) >= 4 {
				userIDs = append(userIDs, parts[2])
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return userIDs, nil
}

func (s *LocalStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
