package storage

import (
	"context"
	"time"

	"MRChat/logger"
	"MRChat/module/chat/model"

	"github.com/redis/go-redis/v9"
)

// ActivityStore 会话活跃度与在线标记（Redis，全部尽力而为）：
//   - act:<user>  ZSET member=scopeID score=最近一条消息的毫秒时间，
//     会话列表按它倒序排（UI 的 last activity marker）
//   - online:<user> 带 TTL 的在线标记，心跳续期
//
// Redis 不可用只影响这些外围功能，不影响消息主链路。
type ActivityStore struct {
	rdb *redis.Client
}

func NewActivityStore(rdb *redis.Client) *ActivityStore {
	return &ActivityStore{rdb: rdb}
}

func activityKey(user string) string { return "act:" + user }
func onlineKey(user string) string   { return "online:" + user }

// TouchActivity 刷新一批用户的会话活跃水位
func (a *ActivityStore) TouchActivity(ctx context.Context, scope model.Scope, userIDs []string, tsMS int64) {
	if a.rdb == nil || len(userIDs) == 0 {
		return
	}
	pipe := a.rdb.Pipeline()
	for _, u := range userIDs {
		pipe.ZAdd(ctx, activityKey(u), redis.Z{Score: float64(tsMS), Member: string(scope)})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warnf("[activity] touch failed scope=%s err=%v", scope, err)
	}
}

// RecentScopes 用户会话列表排序用：最近活跃的前 n 个会话
func (a *ActivityStore) RecentScopes(ctx context.Context, userID string, n int64) []model.Scope {
	if a.rdb == nil {
		return nil
	}
	vals, err := a.rdb.ZRevRange(ctx, activityKey(userID), 0, n-1).Result()
	if err != nil {
		logger.Warnf("[activity] recent failed user=%s err=%v", userID, err)
		return nil
	}
	out := make([]model.Scope, 0, len(vals))
	for _, v := range vals {
		out = append(out, model.Scope(v))
	}
	return out
}

// MarkOnline 上线/心跳续期
func (a *ActivityStore) MarkOnline(ctx context.Context, userID string, ttl time.Duration) {
	if a.rdb == nil {
		return
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := a.rdb.Set(ctx, onlineKey(userID), "1", ttl).Err(); err != nil {
		logger.Warnf("[activity] mark online failed user=%s err=%v", userID, err)
	}
}

// MarkOffline 下线即删
func (a *ActivityStore) MarkOffline(ctx context.Context, userID string) {
	if a.rdb == nil {
		return
	}
	if err := a.rdb.Del(ctx, onlineKey(userID)).Err(); err != nil {
		logger.Warnf("[activity] mark offline failed user=%s err=%v", userID, err)
	}
}

func (a *ActivityStore) IsOnline(ctx context.Context, userID string) bool {
	if a.rdb == nil {
		return false
	}
	n, err := a.rdb.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}
