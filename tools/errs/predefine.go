package errs

// 错误码约定：与 HTTP 语义对齐，ws 侧通过 error 帧透传
const (
	CodeUnauthorized     = 401
	CodeNotFound         = 404
	CodeRateLimited      = 429
	CodeInternal         = 500
	CodeStoreUnavailable = 503
)

var (
	ErrUnauthorized     = NewCodeError(CodeUnauthorized, "unauthorized")
	ErrNotFound         = NewCodeError(CodeNotFound, "not found")
	ErrRateLimited      = NewCodeError(CodeRateLimited, "rate limited")
	ErrInternal         = NewCodeError(CodeInternal, "internal error")
	ErrStoreUnavailable = NewCodeError(CodeStoreUnavailable, "store unavailable")
)

// CodeOf 提取错误码；非 CodeError 一律视为内部错误
func CodeOf(err error) int {
	if err == nil {
		return 0
	}
	type coder interface{ ECode() int }
	var c coder
	if As(err, &c) {
		return c.ECode()
	}
	return CodeInternal
}
