package model

const GroupMemberTableName = "group_member"

const (
	GroupMemberFieldGroupID = "group_id"
	GroupMemberFieldUserID  = "user_id"
)

// GroupMember 群成员关系。本核心只读这张表做投递目标解析，
// 成员增删属于外部 CRUD 协作方。
type GroupMember struct {
	GroupID string `bson:"group_id"`
	UserID  string `bson:"user_id"`
}

func (*GroupMember) TableName() string { return GroupMemberTableName }

const UserTableName = "user"

// UserCredential 登录凭证校验的协作方边界（密码散列方案在核心之外）。
type UserCredential struct {
	UserID    string `bson:"user_id"`
	Username  string `bson:"username"`
	Password  string `bson:"password"` // 已散列
	Nickname  string `bson:"nickname"`
	AvatarURL string `bson:"avatar_url"`
}

func (*UserCredential) TableName() string { return UserTableName }
