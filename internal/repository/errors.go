package repository

import "fmt"

// PersistenceError 落库失败，携带操作名便于上层定位
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("持久化操作 %s 失败: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
