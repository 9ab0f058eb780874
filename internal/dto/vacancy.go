package dto

// ── 缺岗（PPC）模块 DTO ──

// VacancyListRequest 缺岗列表查询参数
type VacancyListRequest struct {
	Status   string `form:"status"   binding:"omitempty,oneof=open resolved"`
	PostID   string `form:"post_id"  binding:"omitempty,uuid"`
	Priority string `form:"priority" binding:"omitempty,oneof=low medium high"`
	From     string `form:"from"     binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to"       binding:"omitempty,datetime=2006-01-02"`
	PaginationRequest
}

// ResolveVacanciesResponse 缺岗重算结果
type ResolveVacanciesResponse struct {
	Period    string `json:"period"`
	Created   int    `json:"created"`
	Refreshed int    `json:"refreshed"`
	Retired   int    `json:"retired"`
	Open      int    `json:"open"`
}

// VacancyResponse 缺岗响应
type VacancyResponse struct {
	ID           string  `json:"id"`
	PostID       string  `json:"post_id"`
	RosterCellID string  `json:"roster_cell_id"`
	WorkDate     string  `json:"work_date"`
	Reason       string  `json:"reason"`
	Priority     string  `json:"priority"`
	Status       string  `json:"status"`
	ResolvedAt   *string `json:"resolved_at,omitempty"`
	CreatedAt    string  `json:"created_at"`
}
