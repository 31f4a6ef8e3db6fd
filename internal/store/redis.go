package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/comeback-bonus/internal/ledger"
	"github.com/park285/comeback-bonus/internal/pipeline"
)

// RedisStore publishes finished runs: a sorted set for consumers that only
// need scores, plus JSON copies of the ranked standings and the full ledger.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for leaderboard store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreFromClient(rdb, ttl), nil
}

func NewRedisStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func boardKey(runID string) string     { return "comeback:leaderboard:" + strings.TrimSpace(runID) }
func standingsKey(runID string) string { return "comeback:standings:" + strings.TrimSpace(runID) }
func ledgerKey(runID string) string    { return "comeback:ledger:" + strings.TrimSpace(runID) }

const latestKey = "comeback:latest"

// Publish writes the run atomically and points comeback:latest at it.
func (s *RedisStore) Publish(ctx context.Context, r *pipeline.Report) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis store not initialized")
	}
	if r == nil || strings.TrimSpace(r.RunID) == "" {
		return fmt.Errorf("report with run id required")
	}
	standingsRaw, err := json.Marshal(r.Standings)
	if err != nil {
		return fmt.Errorf("marshal standings: %w", err)
	}
	ledgerRaw, err := json.Marshal(r.Ledger.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	board := boardKey(r.RunID)
	pipe.Del(ctx, board)
	if len(r.Standings) > 0 {
		members := make([]redis.Z, 0, len(r.Standings))
		for _, st := range r.Standings {
			members = append(members, redis.Z{Score: float64(st.Points), Member: st.Player})
		}
		pipe.ZAdd(ctx, board, members...)
		pipe.Expire(ctx, board, s.ttl)
	}
	pipe.Set(ctx, standingsKey(r.RunID), standingsRaw, s.ttl)
	pipe.Set(ctx, ledgerKey(r.RunID), ledgerRaw, s.ttl)
	pipe.Set(ctx, latestKey, r.RunID, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish run %s: %w", r.RunID, err)
	}
	return nil
}

// LatestRunID returns "" when nothing has been published.
func (s *RedisStore) LatestRunID(ctx context.Context) (string, error) {
	id, err := s.rdb.Get(ctx, latestKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	return id, err
}

// LoadStandings returns the ranked standings of a run, nil if unknown.
func (s *RedisStore) LoadStandings(ctx context.Context, runID string) ([]ledger.Standing, error) {
	raw, err := s.rdb.Get(ctx, standingsKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []ledger.Standing
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RedisStore) LoadLedger(ctx context.Context, runID string) ([]ledger.Entry, error) {
	raw, err := s.rdb.Get(ctx, ledgerKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []ledger.Entry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Score reads one player's points from the run's sorted set.
func (s *RedisStore) Score(ctx context.Context, runID, player string) (int, bool, error) {
	v, err := s.rdb.ZScore(ctx, boardKey(runID), player).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int(v), true, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
