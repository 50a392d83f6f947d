package store

import (
	"context"
	"errors"

	"MRChat/module/chat/model"
)

// ErrNotFound 统一的"查无此行"。mongo 的 ErrNoDocuments 在实现里翻译成它。
var ErrNotFound = errors.New("store: not found")

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Store 持久层抽象：生产实现 Mongo；内存实现（mem.go）给单测用，
// 两者语义必须一致。核心只通过这张接口摸存储。
type Store interface {
	// —— 消息 ——
	// InsertMessage 落库并签发 server_msg_id（写回 m.ServerMsgID）
	InsertMessage(ctx context.Context, m *model.MessageModel) error
	GetMessage(ctx context.Context, serverMsgID int64) (*model.MessageModel, error)
	// DeleteMessage 删除并返回被删行（调用方需要它的 scope 做广播与重排）
	DeleteMessage(ctx context.Context, serverMsgID int64) (*model.MessageModel, error)

	// MaxSeq 会话内已落库的最大 seq；无消息返回 0
	MaxSeq(ctx context.Context, scope model.Scope) (int64, error)
	// MaxSeqExcluding 同上但排除指定行（重复修复时用）
	MaxSeqExcluding(ctx context.Context, scope model.Scope, excludeID int64) (int64, error)
	// CountAtOrBefore 发号降级梯子第二档：截至 ts 的行数
	CountAtOrBefore(ctx context.Context, scope model.Scope, ts int64) (int64, error)
	// FindDuplicateSeq 是否存在 seq 相同且 server_msg_id < beforeID 的行。
	// 只认"更早落库"的同号行：重复时移动的是后插入的那行（发号器的修复约定）。
	FindDuplicateSeq(ctx context.Context, scope model.Scope, seq int64, beforeID int64) (bool, error)
	// UpdateSeq 只改指定行的 seq（重复修复 / 全量重排）
	UpdateSeq(ctx context.Context, serverMsgID int64, seq int64) error

	// ListNewest 按 seq 倒序取最近 limit 条（newest-first）
	ListNewest(ctx context.Context, scope model.Scope, limit int) ([]*model.MessageModel, error)
	// ListOlderThan 按 seq 倒序取 seq < olderThan 的 limit 条
	ListOlderThan(ctx context.Context, scope model.Scope, olderThan int64, limit int) ([]*model.MessageModel, error)
	// ListByCreateAsc 全量重排用：整个会话按 create_time 升序
	ListByCreateAsc(ctx context.Context, scope model.Scope) ([]*model.MessageModel, error)

	// —— 会话（单活） ——
	UpsertSession(ctx context.Context, s *model.UserSession) error
	GetSession(ctx context.Context, userID string) (*model.UserSession, error)
	TouchSession(ctx context.Context, userID string, nowMS int64) error

	// —— 未读 ——
	IncrUnread(ctx context.Context, userID string, scope model.Scope, delta int64) error
	ClearUnread(ctx context.Context, userID string, scope model.Scope) error
	GetUnread(ctx context.Context, userID string, scope model.Scope) (int64, error)
	SumUnread(ctx context.Context, userID string) (int64, error)

	// —— 协作方边界（只读） ——
	GroupMembers(ctx context.Context, groupID string) ([]string, error)
	FindUserByUsername(ctx context.Context, username string) (*model.UserCredential, error)
	GetUsers(ctx context.Context, userIDs []string) ([]*model.UserCredential, error)
}
