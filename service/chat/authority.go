package chat

import (
	"context"
	"sync"
	"time"

	"MRChat/global"
	"MRChat/logger"
	"MRChat/module/chat/model"
	"MRChat/module/chat/store"
	"MRChat/tools/errs"
	"MRChat/tools/security"
)

// SessionAuthority 单活会话管理。每个 user 同时只有一份有效令牌，
// 重新登录即整份替换；旧连接收 kicked 帧后自行断开（软踢，服务端不强拆）。
// 会话表内存为主、落库兜底：进程重启后首次校验会从存储回填。
type SessionAuthority struct {
	db     store.Store
	reg    *Registry
	opts   security.Options
	policy global.SessionPolicy

	mu       sync.RWMutex
	sessions map[string]*model.UserSession // user -> 当前会话
}

func NewSessionAuthority(db store.Store, reg *Registry, secret []byte, policy global.SessionPolicy) *SessionAuthority {
	opts := security.DefaultOptions(secret)
	if policy.Expires() {
		opts.TTL = policy.TTL
	}
	return &SessionAuthority{
		db:       db,
		reg:      reg,
		opts:     opts,
		policy:   policy,
		sessions: make(map[string]*model.UserSession),
	}
}

// Login 签发新令牌并替换旧会话。旧会话的在线连接全部软踢。
func (a *SessionAuthority) Login(ctx context.Context, userID string) (string, error) {
	token, hash, err := security.Generate(a.opts, userID)
	if err != nil {
		return "", errs.Wrap(err)
	}

	// 先踢后写：拿着旧令牌的连接在新会话落地前就该下线
	for _, c := range a.reg.FindByUser(userID) {
		logger.Infof("[authority] soft-kick user=%s conn=%s", userID, c.ConnID)
		c.Send(BuildKicked())
	}

	now := time.Now().UnixMilli()
	s := &model.UserSession{
		UserID:     userID,
		TokenHash:  hash,
		CreateTime: now,
		LastActive: now,
	}
	a.mu.Lock()
	a.sessions[userID] = s
	a.mu.Unlock()

	// 落库失败不挡登录，重启前内存就是权威
	if err := a.db.UpsertSession(ctx, s); err != nil {
		logger.Warnf("[authority] persist session failed user=%s err=%v", userID, err)
	}
	return token, nil
}

// Validate 校验令牌属于该用户的当前会话。
// 内存没有就去存储读一次（重启恢复）；哈希对不上一律 401。
func (a *SessionAuthority) Validate(ctx context.Context, userID, token string) error {
	a.mu.RLock()
	s := a.sessions[userID]
	a.mu.RUnlock()

	if s == nil {
		loaded, err := a.db.GetSession(ctx, userID)
		if err != nil {
			if store.IsNotFound(err) {
				return errs.ErrUnauthorized.WithDetail("no active session")
			}
			return errs.Wrap(err)
		}
		a.mu.Lock()
		// 并发回填时保留已有的（可能是刚 Login 写进来的新会话）
		if cur := a.sessions[userID]; cur != nil {
			s = cur
		} else {
			a.sessions[userID] = loaded
			s = loaded
		}
		a.mu.Unlock()
	}

	if _, err := security.Verify(a.opts, token, s.TokenHash); err != nil {
		return errs.ErrUnauthorized.WithDetail(err.Error())
	}
	return nil
}

// ValidateToken 只有令牌没有 userID 的场合（HTTP Bearer）：
// 先从签名里解出 sub，再走一遍会话校验。
func (a *SessionAuthority) ValidateToken(ctx context.Context, token string) (string, error) {
	userID, err := security.Verify(a.opts, token, "")
	if err != nil {
		return "", errs.ErrUnauthorized.WithDetail(err.Error())
	}
	if err := a.Validate(ctx, userID, token); err != nil {
		return "", err
	}
	return userID, nil
}

// Touch 心跳时刷 last_active；落库尽力而为
func (a *SessionAuthority) Touch(ctx context.Context, userID string) {
	now := time.Now().UnixMilli()
	a.mu.Lock()
	if s := a.sessions[userID]; s != nil {
		s.LastActive = now
	}
	a.mu.Unlock()
	if err := a.db.TouchSession(ctx, userID, now); err != nil && !store.IsNotFound(err) {
		logger.Warnf("[authority] touch session failed user=%s err=%v", userID, err)
	}
}
