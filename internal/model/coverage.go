package model

import "strings"

// CoverageState 排班格覆盖状态（唯一的状态枚举，持久化为以下 token）
type CoverageState string

const (
	StateDayOff           CoverageState = "day_off"
	StatePlanned          CoverageState = "planned"
	StateWorked           CoverageState = "worked"
	StateAbsentUncovered  CoverageState = "absent_uncovered"
	StateCovered          CoverageState = "covered"
	StateOvertimeAssigned CoverageState = "overtime_assigned"
)

// AllCoverageStates 全部状态，顺序即状态机声明顺序
var AllCoverageStates = []CoverageState{
	StateDayOff, StatePlanned, StateWorked, StateAbsentUncovered, StateCovered, StateOvertimeAssigned,
}

// Valid 是否为已知状态
func (s CoverageState) Valid() bool {
	for _, v := range AllCoverageStates {
		if v == s {
			return true
		}
	}
	return false
}

// Occupied 是否有保安实际在岗（占用 occupant_guard_id）
func (s CoverageState) Occupied() bool {
	return s == StateWorked || s == StateCovered || s == StateOvertimeAssigned
}

// Vacant 是否需要缺岗记录：非休息日且无人在岗
func (s CoverageState) Vacant() bool {
	return s == StatePlanned || s == StateAbsentUncovered
}

// Terminal 当日是否已终结
func (s CoverageState) Terminal() bool {
	return s == StateDayOff || s.Occupied()
}

// MonitoringState 排班格巡检状态
type MonitoringState string

const (
	MonitoringNone         MonitoringState = "none"
	MonitoringPendingCheck MonitoringState = "pending_check"
	MonitoringConfirmed    MonitoringState = "confirmed"
	MonitoringIncident     MonitoringState = "incident"
)

// VacancyReason 缺岗原因
type VacancyReason string

const (
	ReasonNoAssignment      VacancyReason = "no_assignment"
	ReasonAbsenceWithNotice VacancyReason = "absence_with_notice"
	ReasonTemporaryLeave    VacancyReason = "temporary_leave"
	ReasonResignation       VacancyReason = "resignation"
)

// Valid 是否为已知原因
func (r VacancyReason) Valid() bool {
	switch r {
	case ReasonNoAssignment, ReasonAbsenceWithNotice, ReasonTemporaryLeave, ReasonResignation:
		return true
	}
	return false
}

// ════════════════════════════════════════════════════════════
// 旧版状态 token 映射
// ════════════════════════════════════════════════════════════

// LegacyTokens 旧系统的三列状态表示
type LegacyTokens struct {
	Estado        string `json:"estado"`
	EstadoUI      string `json:"estado_ui"`
	TipoCobertura string `json:"tipo_cobertura,omitempty"`
}

// LegacyStateTable 覆盖状态 ↔ 旧版 token 的双向映射表
// estado_ui 在表内唯一，可直接反查；estado 需结合 tipo_cobertura
var LegacyStateTable = map[CoverageState]LegacyTokens{
	StateDayOff:           {Estado: "libre", EstadoUI: "libre"},
	StatePlanned:          {Estado: "planificado", EstadoUI: "plan"},
	StateWorked:           {Estado: "trabajado", EstadoUI: "asistido", TipoCobertura: "titular"},
	StateAbsentUncovered:  {Estado: "inasistencia", EstadoUI: "sin_cobertura"},
	StateCovered:          {Estado: "trabajado", EstadoUI: "reemplazo", TipoCobertura: "reemplazo"},
	StateOvertimeAssigned: {Estado: "trabajado", EstadoUI: "extra", TipoCobertura: "turno_extra"},
}

// legacyAliases 历史脚本中出现过的同义 token
var legacyAliases = map[string]string{
	"activo":   "trabajado",
	"a":        "trabajado",
	"l":        "libre",
	"descanso": "libre",
	"ppc":      "planificado",
	"ausente":  "inasistencia",
}

// ToLegacy 状态 → 旧版 token
func (s CoverageState) ToLegacy() LegacyTokens {
	return LegacyStateTable[s]
}

// FromLegacy 旧版 token → 状态
// restDay 为 true 时 'Activo'/'trabajado' 一律解析为 day_off（休息日优先）
func FromLegacy(t LegacyTokens, restDay bool) (CoverageState, bool) {
	ui := strings.ToLower(strings.TrimSpace(t.EstadoUI))
	estado := strings.ToLower(strings.TrimSpace(t.Estado))
	tipo := strings.ToLower(strings.TrimSpace(t.TipoCobertura))
	if alias, ok := legacyAliases[estado]; ok {
		estado = alias
	}

	if restDay && (estado == "trabajado" || estado == "libre" || ui == "libre") {
		return StateDayOff, true
	}

	if ui != "" {
		for state, tokens := range LegacyStateTable {
			if tokens.EstadoUI == ui {
				return state, true
			}
		}
	}

	switch estado {
	case "libre":
		return StateDayOff, true
	case "planificado":
		return StatePlanned, true
	case "inasistencia":
		return StateAbsentUncovered, true
	case "trabajado":
		switch tipo {
		case "reemplazo":
			return StateCovered, true
		case "turno_extra", "extra":
			return StateOvertimeAssigned, true
		default:
			return StateWorked, true
		}
	}
	return "", false
}
