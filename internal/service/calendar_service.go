package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Cryptobal/GardOps-sub016/config"
	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
)

// CalendarService 保安加班日历（iCalendar 订阅）
type CalendarService interface {
	// GuardOvertimeCalendar 每条未作废加班生成一个全天事件
	GuardOvertimeCalendar(ctx context.Context, caller Caller, guardID string, req *dto.GuardCalendarRequest) (*dto.ExportFile, error)
}

type calendarService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, cfg *config.RosterConfig, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, loc: cfg.Location(), logger: logger, now: time.Now}
}

// shiftEventNamespace 事件 UID 命名空间，同一加班记录 UID 稳定
var shiftEventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://gardops.cl/overtime-shift"))

func (s *calendarService) GuardOvertimeCalendar(ctx context.Context, caller Caller, guardID string, req *dto.GuardCalendarRequest) (*dto.ExportFile, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}

	// 默认范围：上月 1 日 ~ 下月末
	today := model.DateOf(s.now(), s.loc)
	from := model.PeriodOf(today).FirstDay().AddDate(0, -1, 0)
	to := model.PeriodOf(today).FirstDay().AddDate(0, 2, -1)
	if req.From != "" {
		d, err := parseDate(req.From)
		if err != nil {
			return nil, err
		}
		from = d
	}
	if req.To != "" {
		d, err := parseDate(req.To)
		if err != nil {
			return nil, err
		}
		to = d
	}

	guard, err := s.repo.Guard.GetByID(ctx, caller.TenantID, guardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuardNotFound
		}
		s.logger.Error("查询保安失败", zap.Error(err))
		return nil, err
	}

	shifts, err := s.repo.Shift.List(ctx, caller.TenantID, repository.ShiftFilter{GuardID: guard.GuardID, From: from, To: to})
	if err != nil {
		s.logger.Error("查询加班记录失败", zap.Error(err))
		return nil, err
	}
	posts, err := s.repo.Post.List(ctx, caller.TenantID, false)
	if err != nil {
		s.logger.Error("查询岗位失败", zap.Error(err))
		return nil, err
	}
	postNames := make(map[string]string, len(posts))
	for _, p := range posts {
		postNames[p.PostID] = p.Name
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//GardOps//Turnos Extra//ES")
	cal.SetXWRCalName(fmt.Sprintf("Turnos extra %s", guard.Name))
	cal.SetXWRTimezone(s.loc.String())

	stamp := s.now().UTC()
	for i := range shifts {
		sh := &shifts[i]
		uid := uuid.NewSHA1(shiftEventNamespace, []byte(sh.ShiftID)).String()
		event := cal.AddEvent(uid + "@gardops")
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(sh.WorkDate)
		event.SetAllDayEndAt(sh.WorkDate.AddDate(0, 0, 1))
		event.SetSummary(fmt.Sprintf("Turno extra · %s", postNames[sh.PostID]))
		event.SetDescription(fmt.Sprintf("Monto: %s\nOrigen: %s\nPagado: %s", sh.Amount.StringFixed(0), sh.Origin, paidMark(sh)))
		event.SetStatus(ics.ObjectStatusConfirmed)
	}

	content := cal.Serialize()
	if content == "" {
		return nil, ErrCalendarGenerateFail
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("turnos_extra_%s.ics", guard.GuardID),
		ContentType: "text/calendar; charset=utf-8",
		Content:     []byte(content),
	}, nil
}
