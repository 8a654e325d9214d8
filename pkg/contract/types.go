package contract

// DataPath: 数据文件的逻辑标识（规范化后的路径，仅用于日志/指标字段）。
// 读写本身使用调用方给出的原始路径。
type DataPath string

// Fielder: 按字段名读取记录值（扁平记录，值为基本类型）。
// 约束：
//  1. 字段名大小写不敏感；
//  2. 未知字段返回 ok=false；
//  3. 数值字段统一返回 int 或 float64，文本字段返回 string。
type Fielder interface {
	Field(name string) (any, bool)
}

// FieldLister: 可选接口，列出可寻址的字段名（用于错误提示）。
type FieldLister interface {
	Fields() []string
}

// FieldSetter: 按字段名写入记录值（由 CLI 的 add 使用）。
// 值为文本形式，由实现负责解析为字段类型。
type FieldSetter interface {
	SetField(name, value string) error
}
