package safe

import (
	"MRChat/logger"
)

// Go 启动一个带 recover 的后台协程，panic 不会带崩整个进程
func Go(name string, f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] %s panic recovered: %v", name, r)
			}
		}()
		f()
	}()
}
