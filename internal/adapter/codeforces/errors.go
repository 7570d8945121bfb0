package codeforces

import "fmt"

// NotFoundError 外部平台不认识该句柄，与传输类失败（限流、网络）严格区分
type NotFoundError struct {
	Handle string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Codeforces 句柄不存在: %s", e.Handle)
}

// SourceError 一次三元拉取整体失败（网络/HTTP/限流/解析），携带句柄与底层原因
type SourceError struct {
	Handle string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("拉取 %s 的 Codeforces 数据失败: %v", e.Handle, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// apiFailedError API 包裹层返回 status=FAILED 时的原始 comment
type apiFailedError struct {
	Comment string
}

func (e *apiFailedError) Error() string {
	return fmt.Sprintf("Codeforces API 返回 FAILED: %s", e.Comment)
}
