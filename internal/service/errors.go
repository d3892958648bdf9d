package service

import "fmt"

var (
	ErrQueryFailed = fmt.Errorf("cannot query log entries")
)
