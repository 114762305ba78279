package core

import (
	"context"
	"errors"
	"time"

	"github.com/RecoveryAshes/SheetCrawler/internal/crawlers"
	"github.com/RecoveryAshes/SheetCrawler/internal/extractors"
	"github.com/RecoveryAshes/SheetCrawler/internal/models"
	"github.com/RecoveryAshes/SheetCrawler/internal/utils"
)

// PageLoader 页面加载接口,由 crawlers.PageLoader 实现
type PageLoader interface {
	Load(ctx context.Context, url string, forceJS bool) (*crawlers.PageResult, error)
	SaveDebugHTML(reason, url, html string) (string, error)
}

// BrowserStarter 预先启动共享浏览器,由 crawlers.BrowserGate 实现
type BrowserStarter interface {
	Start(ctx context.Context) error
}

// ProgressFunc 进度回调: 已完成行数、总行数、百分比
type ProgressFunc func(done, total int, percent float64)

// Orchestrator 逐行爬取表格
// 行按输入顺序处理,第i行的所有字段完成(或确定失败)后才开始第i+1行
type Orchestrator struct {
	loader     PageLoader
	extractors *extractors.Set
	columns    ColumnsConfig
	config     models.CrawlConfig

	browser    BrowserStarter
	checkpoint *CheckpointManager
	resume     bool
	progress   ProgressFunc
}

// NewOrchestrator 创建爬取协调器
func NewOrchestrator(loader PageLoader, set *extractors.Set, columns ColumnsConfig, config models.CrawlConfig) *Orchestrator {
	return &Orchestrator{
		loader:     loader,
		extractors: set,
		columns:    columns,
		config:     config,
	}
}

// SetBrowser 设置共享浏览器,配置必然使用浏览器时在第一行之前启动
func (o *Orchestrator) SetBrowser(b BrowserStarter) {
	o.browser = b
}

// SetCheckpoint 设置检查点,resume为true时从已有检查点恢复
func (o *Orchestrator) SetCheckpoint(m *CheckpointManager, resume bool) {
	o.checkpoint = m
	o.resume = resume
}

// SetProgressFunc 设置进度回调
func (o *Orchestrator) SetProgressFunc(fn ProgressFunc) {
	o.progress = fn
}

// DerivedColumns 派生列(按追加顺序)
func (o *Orchestrator) DerivedColumns() []string {
	return []string{
		o.columns.GoogleHeadings,
		o.columns.SearchTitles,
		o.columns.ProductOverview,
		o.columns.AboutItem,
	}
}

// URLColumns 输入URL列,检查点用它校验表格未被修改
func (o *Orchestrator) URLColumns() []string {
	return []string{o.columns.GoogleURL, o.columns.SearchURL, o.columns.DetailURL}
}

// Run 处理表格中的所有行
// 单个字段失败不会中断运行,只有浏览器资源不可用或ctx取消会提前返回,
// 此时返回已完成部分的报告和错误
func (o *Orchestrator) Run(ctx context.Context, sheet *models.Sheet) (*models.RunReport, error) {
	startTime := time.Now()
	report := &models.RunReport{
		RunID:     models.NewRunID(),
		Mode:      o.config.Mode,
		StartTime: startTime,
		Config:    o.config,
		Rows:      make([]models.RowResult, 0, len(sheet.Rows)),
	}
	report.Stats.TotalRows = len(sheet.Rows)

	finish := func(err error) (*models.RunReport, error) {
		report.EndTime = time.Now()
		report.Stats.Duration = report.EndTime.Sub(startTime).Seconds()
		if err != nil {
			report.FatalError = err.Error()
		}
		return report, err
	}

	utils.Infof("🚀 开始处理表格: %d 行, 模式 %s", len(sheet.Rows), o.config.Mode)

	if o.config.NeedsBrowser() && o.browser != nil {
		utils.Info("配置要求浏览器渲染,预先启动浏览器")
		if err := o.browser.Start(ctx); err != nil {
			return finish(err)
		}
	}

	start := 0
	if o.checkpoint != nil {
		o.checkpoint.Reset(report.RunID)
		if o.resume {
			restored, err := o.checkpoint.Restore(sheet, o.DerivedColumns(), o.URLColumns())
			if err != nil {
				utils.Warnf("检查点无效,从头开始: %v", err)
			}
			// 恢复行的字段结果计入报告,失败字段列表覆盖整张表格
			for _, result := range restored {
				report.Rows = append(report.Rows, result)
				for _, f := range result.Fields {
					report.Stats.Record(f)
				}
			}
			start = len(restored)
			report.Stats.ResumedRows = start
			o.reportProgress(start, len(sheet.Rows))
		}
	}

	for i := start; i < len(sheet.Rows); i++ {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		row := sheet.Rows[i]
		result, err := o.processRow(ctx, row, &report.Stats)
		report.Rows = append(report.Rows, result)
		for _, f := range result.Fields {
			report.Stats.Record(f)
		}
		if err != nil {
			utils.Errorf("❌ 第 %d 行处理中止: %v", row.Index+1, err)
			return finish(err)
		}

		report.Stats.ProcessedRows++
		if o.checkpoint != nil {
			if err := o.checkpoint.Record(row, result, o.DerivedColumns(), o.URLColumns()); err != nil {
				utils.Warnf("%v", err)
			}
		}
		o.reportProgress(i+1, len(sheet.Rows))
	}

	if o.checkpoint != nil {
		if err := o.checkpoint.Remove(); err != nil {
			utils.Warnf("删除检查点失败: %v", err)
		}
	}

	utils.Infof("✅ 表格处理完成: %d 行", report.Stats.ProcessedRows)
	return finish(nil)
}

// processRow 顺序处理一行的三个URL列
// 每行都会得到全部派生列,跳过或失败时为空
func (o *Orchestrator) processRow(ctx context.Context, row *models.CrawlRow, stats *models.RunStats) (models.RowResult, error) {
	result := models.RowResult{Index: row.Index, Fields: make([]models.FieldResult, 0, 4)}
	for _, column := range o.DerivedColumns() {
		row.Set(column, "")
	}

	fields := []struct {
		urlColumn string
		outputs   []string
		chains    []*extractors.Chain
	}{
		{o.columns.GoogleURL, []string{o.columns.GoogleHeadings}, []*extractors.Chain{o.extractors.Google}},
		{o.columns.SearchURL, []string{o.columns.SearchTitles}, []*extractors.Chain{o.extractors.Search}},
		// 详情页只加载一次,同时填充产品参数和特性列表
		{o.columns.DetailURL, []string{o.columns.ProductOverview, o.columns.AboutItem}, []*extractors.Chain{o.extractors.Overview, o.extractors.About}},
	}

	for i, field := range fields {
		pageURL := row.URL(field.urlColumn)
		if pageURL == "" {
			for _, column := range field.outputs {
				result.Fields = append(result.Fields, models.FieldResult{Column: column, Status: models.FieldSkipped})
			}
			continue
		}

		page, err := o.loadPage(ctx, pageURL, stats)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}

			status := models.FieldLoadFailed
			fatal := errors.Is(err, models.ErrResourceUnavailable)
			if fatal {
				status = models.FieldUnavailable
			}

			utils.Logger.Warn().
				Int("row", row.Index+1).
				Str("column", field.urlColumn).
				Str("url", pageURL).
				Err(err).
				Msg("页面加载失败")

			for _, column := range field.outputs {
				result.Fields = append(result.Fields, models.FieldResult{
					Column:   column,
					URL:      pageURL,
					Status:   status,
					LoadPath: loadPathOf(err),
					Error:    err.Error(),
				})
			}

			if fatal {
				// 本行剩余字段同样不可用
				for _, rest := range fields[i+1:] {
					for _, column := range rest.outputs {
						result.Fields = append(result.Fields, models.FieldResult{
							Column: column,
							URL:    row.URL(rest.urlColumn),
							Status: models.FieldUnavailable,
						})
					}
				}
				return result, err
			}
			continue
		}

		for j, column := range field.outputs {
			f := o.extract(row, page, column, field.chains[j])
			row.Set(column, f.Value)
			result.Fields = append(result.Fields, f)
		}
	}

	return result, nil
}

// loadPage 加载页面并累计加载统计
func (o *Orchestrator) loadPage(ctx context.Context, pageURL string, stats *models.RunStats) (*crawlers.PageResult, error) {
	page, err := o.loader.Load(ctx, pageURL, o.config.ForceJS)
	if err != nil {
		return nil, err
	}

	switch page.Path {
	case models.PathStatic:
		stats.StaticLoads++
	case models.PathDynamic:
		stats.DynamicLoads++
	}
	if page.FellBack {
		stats.Fallbacks++
	}

	utils.Debugf("页面已加载: %s", page)
	return page, nil
}

// extract 依次尝试策略链,全部无结果时按配置保存页面源码
func (o *Orchestrator) extract(row *models.CrawlRow, page *crawlers.PageResult, column string, chain *extractors.Chain) models.FieldResult {
	f := models.FieldResult{
		Column:   column,
		URL:      page.URL,
		LoadPath: page.Path,
	}

	res, err := chain.Run(page.Document)
	if err != nil {
		f.Status = models.FieldEmpty
		f.Error = err.Error()

		utils.Logger.Warn().
			Int("row", row.Index+1).
			Str("column", column).
			Str("url", page.URL).
			Strs("strategies", chain.StrategyNames()).
			Msg("所有提取策略均无结果")

		if path, saveErr := o.loader.SaveDebugHTML("empty", page.URL, page.HTML); saveErr != nil {
			utils.Warnf("保存调试HTML失败: %v", saveErr)
		} else if path != "" {
			utils.Debugf("无结果页面已保存: %s", path)
		}
		return f
	}

	f.Status = models.FieldOK
	f.Strategy = res.Strategy
	f.Value = res.Flatten()

	utils.Logger.Debug().
		Int("row", row.Index+1).
		Str("column", column).
		Str("strategy", res.Strategy).
		Int("items", len(res.Items)+len(res.Pairs)).
		Msg("提取成功")
	return f
}

func (o *Orchestrator) reportProgress(done, total int) {
	if o.progress == nil {
		return
	}
	percent := 100.0
	if total > 0 {
		percent = float64(done) * 100 / float64(total)
	}
	o.progress(done, total, percent)
}

// loadPathOf 从加载错误中取出失败的加载路径
func loadPathOf(err error) models.LoadPath {
	var le *models.LoadError
	if errors.As(err, &le) {
		return le.Path
	}
	return ""
}
