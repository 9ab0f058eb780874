package service

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/Cryptobal/GardOps-sub016/internal/model"
)

// ── 岗位休息日判定 ──────────────────────────────────────────
//
// 优先级：
//  1. rest_rule 非空：CEL 布尔表达式，变量 weekday(0=周日) / day / month / year / cycle_day
//  2. pattern_code 为 NxM：自 pattern_anchor 起工作 N 天、休息 M 天循环
//  3. rest_weekdays：指定星期休息
//  4. 以上皆无：每天工作
//
// pattern_anchor 缺省时以所生成月份的 1 日为锚点

// restPatternEvaluator 编译后的 CEL 程序按表达式缓存
type restPatternEvaluator struct {
	mu    sync.RWMutex
	cache map[string]cel.Program
}

func newRestPatternEvaluator() *restPatternEvaluator {
	return &restPatternEvaluator{cache: make(map[string]cel.Program)}
}

// restDays 计算岗位在周期内每天是否休息，返回以日为下标（1..n）的切片
func (e *restPatternEvaluator) restDays(post *model.OperationalPost, period model.Period) ([]bool, error) {
	days := period.Days()
	out := make([]bool, len(days)+1)

	anchor := period.FirstDay()
	if post.PatternAnchor != nil {
		anchor = model.DateOf(*post.PatternAnchor, time.UTC)
	}

	var (
		prg              cel.Program
		workLen, restLen int
		err              error
	)
	switch {
	case strings.TrimSpace(post.RestRule) != "":
		if prg, err = e.program(post.RestRule); err != nil {
			return nil, fmt.Errorf("%w: 岗位 %s rest_rule: %v", ErrInvalidRestPattern, post.PostID, err)
		}
	case post.PatternCode != "":
		if workLen, restLen, err = parsePatternCode(post.PatternCode); err != nil {
			return nil, fmt.Errorf("%w: 岗位 %s pattern_code: %v", ErrInvalidRestPattern, post.PostID, err)
		}
	}

	for _, d := range days {
		cycleDay := daysBetween(anchor, d)
		var rest bool
		switch {
		case prg != nil:
			rest, err = evalRestRule(prg, d, cycleDay)
			if err != nil {
				return nil, fmt.Errorf("%w: 岗位 %s rest_rule: %v", ErrInvalidRestPattern, post.PostID, err)
			}
		case workLen > 0:
			pos := cycleDay % (workLen + restLen)
			if pos < 0 {
				pos += workLen + restLen
			}
			rest = pos >= workLen
		default:
			rest = post.RestWeekdays.Contains(int(d.Weekday()))
		}
		out[d.Day()] = rest
	}
	return out, nil
}

func (e *restPatternEvaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("weekday", cel.IntType),
		cel.Variable("day", cel.IntType),
		cel.Variable("month", cel.IntType),
		cel.Variable("year", cel.IntType),
		cel.Variable("cycle_day", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("创建 CEL 环境失败: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("表达式必须返回 bool，实际为 %s", ast.OutputType())
	}

	prg, err = env.Program(ast)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()
	return prg, nil
}

func evalRestRule(prg cel.Program, d time.Time, cycleDay int) (bool, error) {
	out, _, err := prg.Eval(map[string]interface{}{
		"weekday":   int64(d.Weekday()),
		"day":       int64(d.Day()),
		"month":     int64(d.Month()),
		"year":      int64(d.Year()),
		"cycle_day": int64(cycleDay),
	})
	if err != nil {
		return false, err
	}
	rest, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("表达式返回 %T", out.Value())
	}
	return rest, nil
}

// parsePatternCode 解析 "4x4" / "5x2" 形式的轮班代码
func parsePatternCode(code string) (work, rest int, err error) {
	w, r, ok := strings.Cut(strings.ToLower(strings.TrimSpace(code)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("格式应为 NxM: %q", code)
	}
	if work, err = strconv.Atoi(w); err != nil || work <= 0 {
		return 0, 0, fmt.Errorf("工作天数无效: %q", code)
	}
	if rest, err = strconv.Atoi(r); err != nil || rest < 0 {
		return 0, 0, fmt.Errorf("休息天数无效: %q", code)
	}
	return work, rest, nil
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
