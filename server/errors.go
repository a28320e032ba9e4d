package server

import "errors"

// 本地处理的错误：只记日志，不下发给客户端，也不断开连接
var (
	ErrInvalidMove       = errors.New("invalid move")
	ErrUnknownConnection = errors.New("unknown connection")
	ErrDuplicateIdentity = errors.New("duplicate identity request")
)
