// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kv

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisClient is the production Client backed by github.com/redis/go-redis/v9.
type RedisClient struct {
	rdb   *redis.Client
	retry time.Duration
	log   zerolog.Logger
}

// NewRedisClient builds a client against addr (host:port). retry is the
// fixed interval Connect waits between failed pings, per redis.retry in
// config.
func NewRedisClient(addr string, retry time.Duration, log zerolog.Logger) *RedisClient {
	if retry <= 0 {
		retry = 10 * time.Second
	}
	return &RedisClient{
		rdb:   redis.NewClient(&redis.Options{Addr: addr}),
		retry: retry,
		log:   log,
	}
}

// Connect blocks, retrying Ping on the fixed retry interval, until the
// store is reachable or ctx is cancelled.
func (c *RedisClient) Connect(ctx context.Context) error {
	for {
		if err := c.Ping(ctx); err == nil {
			c.log.Info().Str("addr", c.rdb.Options().Addr).Msg("connected to redis")
			return nil
		} else {
			c.log.Warn().Err(err).Dur("retry_in", c.retry).Msg("redis unreachable, retrying")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retry):
		}
	}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PopMessageBatch pipelines LRANGE 0 (limit-1) and LTRIM limit -1 into a
// single round trip, reading and trimming the head of the list atomically
// from the caller's point of view.
func (c *RedisClient) PopMessageBatch(ctx context.Context, key string, limit int64) ([][]byte, error) {
	if limit <= 0 {
		return nil, nil
	}
	pipe := c.rdb.Pipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, limit-1)
	pipe.LTrim(ctx, key, limit, -1)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pop message batch %s: %w", key, err)
	}
	vals := rangeCmd.Val()
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

func (c *RedisClient) SSetTrimByScore(ctx context.Context, key string, min, max float64) error {
	return c.rdb.ZRemRangeByScore(ctx, key, fmtScore(min), fmtScore(max)).Err()
}

func (c *RedisClient) SSetAdd(ctx context.Context, key string, score float64, member string) error {
	return c.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (c *RedisClient) SSetCard(ctx context.Context, key string) (int64, error) {
	return c.rdb.ZCard(ctx, key).Result()
}

func (c *RedisClient) SetMembers(ctx context.Context, key string) ([]string, error) {
	return c.rdb.SMembers(ctx, key).Result()
}

func (c *RedisClient) SetAdd(ctx context.Context, key string, member string) error {
	return c.rdb.SAdd(ctx, key, member).Err()
}

func (c *RedisClient) SetRemove(ctx context.Context, key string, member string) error {
	return c.rdb.SRem(ctx, key, member).Err()
}

func (c *RedisClient) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisClient) SetEX(ctx context.Context, key string, ttl time.Duration, value string) error {
	return c.rdb.SetEx(ctx, key, value, ttl).Err()
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// fmtScore renders a float score the way ZREMRANGEBYSCORE expects: a plain
// decimal, or the literal "-inf"/"+inf" range bounds.
func fmtScore(f float64) string {
	switch {
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsInf(f, 1):
		return "+inf"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}
