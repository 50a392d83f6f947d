package model

const SessionTableName = "user_session"

const (
	SessionFieldUserID     = "user_id"
	SessionFieldTokenHash  = "token_hash"
	SessionFieldCreateTime = "create_time"
	SessionFieldLastActive = "last_active"
)

// UserSession 单活会话记录：每个 user 至多一条，重新登录即整条替换。
// 只存 token 哈希；时间不过期（策略见 global.SessionPolicy），落库是为了进程重启后恢复。
type UserSession struct {
	UserID     string `bson:"user_id"`
	TokenHash  string `bson:"token_hash"`
	CreateTime int64  `bson:"create_time"` // Unix ms
	LastActive int64  `bson:"last_active"` // Unix ms
}

func (*UserSession) TableName() string { return SessionTableName }
