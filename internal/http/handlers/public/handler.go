package public

import "github.com/commission-next/internal/provider"

// Handler 对外开放接口处理器入口
// 说明：该处理器用于 CRM、薪酬系统等外部系统对接的 API。
type Handler struct {
	*provider.Container
}

// New 创建公开处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
