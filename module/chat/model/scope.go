package model

import "strings"

// Scope 会话作用域ID（规范形式）：
//
//	global          全局大厅
//	grp:<groupID>   群聊
//	p2p:<lo>_<hi>   单聊（两个 userID 排序后拼接，方向无关）
//
// 所有 seq / 历史窗口 / 未读计数都按 Scope 分区，跨 Scope 不保证任何顺序。
type Scope string

const ScopeGlobal Scope = "global"

const (
	prefixGroup   = "grp:"
	prefixPrivate = "p2p:"
)

// userID 是外部给的不透明字符串，可能自带 "_"。进 scope 前把
// "%" 和 "_" 做最小转义，保证拼出来的串里分隔符唯一、可逆拆回。
// 不含这两个字符的ID转义后原样不动。
var (
	escapeID   = strings.NewReplacer("%", "%25", "_", "%5F")
	unescapeID = strings.NewReplacer("%25", "%", "%5F", "_")
)

func GroupScope(groupID string) Scope {
	return Scope(prefixGroup + groupID)
}

// PrivateScope 无序对规范化：转义后小的在前
func PrivateScope(a, b string) Scope {
	lo, hi := escapeID.Replace(a), escapeID.Replace(b)
	if lo > hi {
		lo, hi = hi, lo
	}
	return Scope(prefixPrivate + lo + "_" + hi)
}

func (s Scope) IsGlobal() bool  { return s == ScopeGlobal }
func (s Scope) IsGroup() bool   { return strings.HasPrefix(string(s), prefixGroup) }
func (s Scope) IsPrivate() bool { return strings.HasPrefix(string(s), prefixPrivate) }

func (s Scope) GroupID() string {
	if !s.IsGroup() {
		return ""
	}
	return strings.TrimPrefix(string(s), prefixGroup)
}

// PrivateUsers 拆回两个 userID；非单聊返回空串。
// ID内的 "_" 已被转义，串里剩下的那个下划线就是分隔符。
func (s Scope) PrivateUsers() (string, string) {
	if !s.IsPrivate() {
		return "", ""
	}
	body := strings.TrimPrefix(string(s), prefixPrivate)
	lo, hi, ok := strings.Cut(body, "_")
	if !ok {
		return "", ""
	}
	return unescapeID.Replace(lo), unescapeID.Replace(hi)
}

// PeerOf 单聊里 user 的对端；user 不在这对里返回空串
func (s Scope) PeerOf(user string) string {
	a, b := s.PrivateUsers()
	switch user {
	case a:
		return b
	case b:
		return a
	default:
		return ""
	}
}

// Valid 粗校验：三种形态之一
func (s Scope) Valid() bool {
	return s.IsGlobal() || (s.IsGroup() && s.GroupID() != "") || func() bool {
		a, b := s.PrivateUsers()
		return a != "" && b != ""
	}()
}
