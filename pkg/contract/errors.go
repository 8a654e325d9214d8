package contract

import "errors"

// 存储/路径相关最小错误分类（哨兵）。
var (
	// ErrNotFound: 读取时目标文件不存在。
	ErrNotFound = errors.New("not found")
	// ErrDecode: 文件存在但内容不符合期望结构。
	ErrDecode = errors.New("decode error")
	// ErrEncode: 集合无法序列化。
	ErrEncode = errors.New("encode error")
	// ErrIO: 其他读写故障（权限、磁盘空间等）。
	ErrIO = errors.New("io failure")
	// ErrPathInvalid: 路径为空或指向目录等无效目标。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvalidInput: 调用参数非法（未知字段、表达式无法解析等）。
	ErrInvalidInput = errors.New("invalid input")
)
