package model

const UnreadTableName = "seq_user"

const (
	UnreadFieldUserID     = "user_id"
	UnreadFieldScopeID    = "scope_id"
	UnreadFieldUnread     = "unread"
	UnreadFieldUpdateTime = "update_time"
)

// UnreadCounter 用户视角的未读水位。只在群聊/单聊上计数，
// 全局大厅不做未读统计。clear 语义是 last-writer-wins：清零就是"正在看"。
type UnreadCounter struct {
	UserID     string `bson:"user_id"`
	ScopeID    Scope  `bson:"scope_id"`
	Unread     int64  `bson:"unread"`
	UpdateTime int64  `bson:"update_time"` // Unix ms
}

func (*UnreadCounter) TableName() string { return UnreadTableName }
