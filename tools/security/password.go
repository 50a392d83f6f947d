package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPassword 口令落库形态：hex(sha256)。
// TODO: 换 bcrypt，需要先给存量用户表做一次迁移
func HashPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// CheckPassword 常数时间比较
func CheckPassword(plain, hashed string) bool {
	return subtle.ConstantTimeCompare([]byte(HashPassword(plain)), []byte(hashed)) == 1
}
