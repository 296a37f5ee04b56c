package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seekr-live/seekr/internal/game"
)

// RoomTTL bounds how long a room outlives its last write, so crashed
// processes never leave stale rooms behind.
const RoomTTL = 2 * time.Hour

// Redis stores rooms as JSON documents under room:<code>, shared across
// every server process pointed at the same instance.
type Redis struct {
	client *redis.Client
}

var _ game.Store = (*Redis)(nil)

// NewRedis connects to the given URL (redis://host:port) and verifies the
// connection before returning.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func roomKey(code string) string { return "room:" + code }

func claimKey(code, roundID string) string { return "roomwin:" + code + ":" + roundID }

func (r *Redis) Get(ctx context.Context, code string) (*game.Room, error) {
	raw, err := r.client.Get(ctx, roomKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, game.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	var room game.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *Redis) Set(ctx context.Context, code string, room *game.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, roomKey(code), raw, RoomTTL).Err()
}

func (r *Redis) Delete(ctx context.Context, code string) error {
	return r.client.Del(ctx, roomKey(code)).Err()
}

func (r *Redis) Exists(ctx context.Context, code string) (bool, error) {
	n, err := r.client.Exists(ctx, roomKey(code)).Result()
	return n > 0, err
}

// ClaimRoundWin is a SETNX: the first claimant across all workers wins, every
// later one sees false.
func (r *Redis) ClaimRoundWin(ctx context.Context, code, roundID, claimant string) (bool, error) {
	return r.client.SetNX(ctx, claimKey(code, roundID), claimant, RoomTTL).Result()
}
