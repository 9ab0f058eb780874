package dto

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 50
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// ── 通用简要信息 ──

// LegacyTokens 旧版状态三元组（仅供过渡期下游读取）
type LegacyTokens struct {
	Estado        string `json:"estado"`
	EstadoUI      string `json:"estado_ui"`
	TipoCobertura string `json:"tipo_cobertura,omitempty"`
}

// GuardBrief 保安简要信息
type GuardBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	RUT  string `json:"rut,omitempty"`
}

// DateLayout 日期格式
const DateLayout = "2006-01-02"
