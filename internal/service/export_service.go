package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 支付批次导出为 planilla (.xlsx)，每行一条加班记录
//   - 以 dto.ExportFile 返回，由 Handler 层设置响应头后写出
type ExportService interface {
	ExportBatch(ctx context.Context, caller Caller, batchID string) (*dto.ExportFile, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ═══════════════════════════════════════════════════════════
// ExportBatch 导出支付批次 planilla
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：批次编号 + 状态
//   - 表头：日期 | 安装点 | 岗位 | 保安 | RUT | 来源 | 金额 | 已支付
//   - 末行：合计

func (s *exportService) ExportBatch(ctx context.Context, caller Caller, batchID string) (*dto.ExportFile, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}

	// 1. 批次与成员
	batch, err := s.repo.Batch.GetByID(ctx, caller.TenantID, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		s.logger.Error("查询支付批次失败", zap.Error(err))
		return nil, err
	}
	shifts, err := s.repo.Shift.ListByBatch(ctx, caller.TenantID, batch.BatchID)
	if err != nil {
		s.logger.Error("查询批次加班记录失败", zap.Error(err))
		return nil, err
	}

	// 2. 岗位 / 安装点名称
	posts, err := s.repo.Post.List(ctx, caller.TenantID, false)
	if err != nil {
		s.logger.Error("查询岗位失败", zap.Error(err))
		return nil, err
	}
	postNames := make(map[string]string, len(posts))
	for _, p := range posts {
		postNames[p.PostID] = p.Name
	}
	instNames := make(map[string]string)
	for _, sh := range shifts {
		if _, ok := instNames[sh.InstallationID]; ok {
			continue
		}
		instNames[sh.InstallationID] = sh.InstallationID
		if inst, err := s.repo.Installation.GetByID(ctx, caller.TenantID, sh.InstallationID); err == nil {
			instNames[sh.InstallationID] = inst.Name
		}
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Planilla"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	widths := []float64{12, 24, 24, 26, 14, 10, 14, 8}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	amountStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 3})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s (%s)", batch.Code, batch.State))
	f.MergeCell(sheetName, "A1", cell(colName(len(widths)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"Fecha", "Instalación", "Puesto", "Guardia", "RUT", "Origen", "Monto", "Pagado"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	row := 3
	for i := range shifts {
		sh := &shifts[i]
		guardName, rut := sh.SubstituteGuardID, ""
		if sh.SubstituteGuard != nil {
			guardName, rut = sh.SubstituteGuard.Name, sh.SubstituteGuard.RUT
		}
		amount, _ := sh.Amount.Float64()
		values := []interface{}{
			formatDate(sh.WorkDate),
			instNames[sh.InstallationID],
			postNames[sh.PostID],
			guardName,
			rut,
			string(sh.Origin),
			amount,
			paidMark(sh),
		}
		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), row), v)
		}
		f.SetCellStyle(sheetName, cell("G", row), cell("G", row), amountStyle)
		row++
	}

	// 合计
	total, _ := batch.TotalAmount.Float64()
	f.SetCellValue(sheetName, cell("F", row), "Total")
	f.SetCellValue(sheetName, cell("G", row), total)
	f.SetCellStyle(sheetName, cell("G", row), cell("G", row), amountStyle)

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, ErrExportGenerateFail
	}

	return &dto.ExportFile{
		Filename:    fmt.Sprintf("planilla_%s.xlsx", batch.Code),
		ContentType: xlsxContentType,
		Content:     buf.Bytes(),
	}, nil
}

func paidMark(sh *model.OvertimeShift) string {
	if sh.Paid {
		return "Sí"
	}
	return "No"
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
