package model

// ===== 常量 & 字段名 =====

const MsgTableName = "message"

// 消息内容类型
const (
	ContentText  int32 = 1
	ContentImage int32 = 2
	ContentFile  int32 = 3
	ContentQuote int32 = 4 // 引用回复，QuotedID 指向被引用消息
)

// bson 字段名常量：拼 filter/update 时统一引用，避免散落的裸字符串
const (
	MsgFieldServerMsgID = "server_msg_id"
	MsgFieldScopeID     = "scope_id"
	MsgFieldSeq         = "seq"
	MsgFieldCreateTime  = "create_time"
)

// ===== 存储结构 =====

// MessageModel 一条消息的主干数据。seq 为会话内自增序列（从1起步），
// 由发号器乐观分配，稳定态内无空洞；server_msg_id 由存储层落库时签发。
type MessageModel struct {
	ServerMsgID int64  `bson:"server_msg_id" json:"server_msg_id"` // 存储签发的全局消息ID
	ScopeID     Scope  `bson:"scope_id" json:"scope_id"`
	SendID      string `bson:"send_id" json:"send_id"`           // 发送者ID
	ContentType int32  `bson:"content_type" json:"content_type"` // 1=文本,2=图片,3=文件,4=引用
	Content     string `bson:"content" json:"content"`           // 内容（小体量直接存字符串）
	QuotedID    int64  `bson:"quoted_id,omitempty" json:"quoted_id,omitempty"`
	Seq         int64  `bson:"seq" json:"seq"`                 // 会话内自增序列
	CreateTime  int64  `bson:"create_time" json:"create_time"` // Unix ms
}

func (*MessageModel) TableName() string { return MsgTableName }
