package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RecoveryAshes/SheetCrawler/internal/crawlers"
	"github.com/RecoveryAshes/SheetCrawler/internal/extractors"
	"github.com/RecoveryAshes/SheetCrawler/internal/models"
)

// fakePage 测试页面: HTML或错误
type fakePage struct {
	html     string
	err      error
	path     models.LoadPath
	fellBack bool
}

// fakeLoader 按URL返回固定页面,记录加载次数
type fakeLoader struct {
	mu     sync.Mutex
	pages  map[string]fakePage
	loads  map[string]int
	forced []bool
	debug  []string
}

func newFakeLoader(pages map[string]fakePage) *fakeLoader {
	return &fakeLoader{pages: pages, loads: make(map[string]int)}
}

func (l *fakeLoader) Load(ctx context.Context, url string, forceJS bool) (*crawlers.PageResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[url]++
	l.forced = append(l.forced, forceJS)

	p, ok := l.pages[url]
	if !ok {
		return nil, models.NewLoadError(url, models.PathStatic, errors.New("HTTP 404"))
	}
	if p.err != nil {
		return nil, p.err
	}

	doc, err := extractors.ParseHTML(p.html)
	if err != nil {
		return nil, err
	}
	path := p.path
	if path == "" {
		path = models.PathStatic
	}
	return &crawlers.PageResult{URL: url, HTML: p.html, Document: doc, Path: path, FellBack: p.fellBack}, nil
}

func (l *fakeLoader) SaveDebugHTML(reason, url, html string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = append(l.debug, reason+":"+url)
	return "debug/" + reason + ".html", nil
}

func (l *fakeLoader) loadCount(url string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[url]
}

// fakeStarter 记录预启动调用
type fakeStarter struct {
	err    error
	starts int
}

func (s *fakeStarter) Start(ctx context.Context) error {
	s.starts++
	return s.err
}

func testColumns() ColumnsConfig {
	return ColumnsConfig{
		GoogleURL:       "search_on_google_url",
		SearchURL:       "search_page_url",
		DetailURL:       "detail_page_url",
		GoogleHeadings:  "Google_Headings",
		SearchTitles:    "Search_Page_Titles",
		ProductOverview: "Product Overview",
		AboutItem:       "About This Item",
	}
}

func newTestOrchestrator(loader PageLoader, cfg models.CrawlConfig) *Orchestrator {
	return NewOrchestrator(loader, extractors.NewSet(cfg.GoogleCount, cfg.SearchCount), testColumns(), cfg)
}

// newSheet 按列名和每行的值构造表格
func newSheet(columns []string, rows ...[]string) *models.Sheet {
	sheet := &models.Sheet{Columns: columns}
	for i, values := range rows {
		row := models.NewCrawlRow(i)
		for j, c := range columns {
			if j < len(values) {
				row.Set(c, values[j])
			} else {
				row.Set(c, "")
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

var urlColumns = []string{"name", "search_on_google_url", "search_page_url", "detail_page_url"}

func googlePage(n int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "<div><h3>Result heading number %d</h3></div>", i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

const searchPage = `<html><body>
<h2>Results for kettle</h2>
<h2>Stainless Steel Electric Kettle</h2>
<h2>Glass Kettle with Blue LED</h2>
</body></html>`

const detailPage = `<html><body>
<table>
<tr><th>Weight</th><td>2 kg</td></tr>
<tr><th>Capacity:</th><td>1.7 L</td></tr>
</table>
<div id="feature-bullets"><ul><li>Boils water fast</li><li>Auto shut-off</li></ul></div>
</body></html>`

func TestOrchestrator_RowWithoutURLs(t *testing.T) {
	loader := newFakeLoader(nil)
	orch := newTestOrchestrator(loader, models.DefaultCrawlConfig())
	sheet := newSheet(urlColumns, []string{"empty row"})

	report, err := orch.Run(context.Background(), sheet)
	require.NoError(t, err)

	row := sheet.Rows[0]
	for _, column := range orch.DerivedColumns() {
		assert.Contains(t, row.Columns(), column, "缺少派生列 %s", column)
		assert.Equal(t, "", row.Get(column))
	}
	assert.Empty(t, loader.loads)
	assert.Equal(t, 4, report.Stats.SkippedFields)
	assert.Equal(t, 1, report.Stats.ProcessedRows)
	assert.Equal(t, append(urlColumns, orch.DerivedColumns()...), sheet.AllColumns())
}

func TestOrchestrator_FullRow(t *testing.T) {
	loader := newFakeLoader(map[string]fakePage{
		"https://google.test/q": {html: googlePage(8)},
		"https://shop.test/s":   {html: searchPage, path: models.PathDynamic, fellBack: true},
		"https://shop.test/p/1": {html: detailPage},
	})
	orch := newTestOrchestrator(loader, models.DefaultCrawlConfig())
	sheet := newSheet(urlColumns, []string{"kettle", "https://google.test/q", "https://shop.test/s", "https://shop.test/p/1"})

	report, err := orch.Run(context.Background(), sheet)
	require.NoError(t, err)
	row := sheet.Rows[0]

	t.Run("Google标题截取前5个", func(t *testing.T) {
		lines := strings.Split(row.Get("Google_Headings"), "\n")
		require.Len(t, lines, 5)
		assert.Equal(t, "Result heading number 1", lines[0])
		assert.Equal(t, "Result heading number 5", lines[4])
		assert.Equal(t, "all-h3", report.Rows[0].Fields[0].Strategy)
	})

	t.Run("搜索标题跳过页面标题", func(t *testing.T) {
		assert.Equal(t, "Stainless Steel Electric Kettle\nGlass Kettle with Blue LED", row.Get("Search_Page_Titles"))
	})

	t.Run("详情页只加载一次", func(t *testing.T) {
		assert.Equal(t, 1, loader.loadCount("https://shop.test/p/1"))
		assert.Equal(t, "Weight: 2 kg\nCapacity: 1.7 L", row.Get("Product Overview"))
		assert.Equal(t, "Boils water fast\nAuto shut-off", row.Get("About This Item"))
	})

	t.Run("统计", func(t *testing.T) {
		assert.Equal(t, 4, report.Stats.OKFields)
		assert.Equal(t, 2, report.Stats.StaticLoads)
		assert.Equal(t, 1, report.Stats.DynamicLoads)
		assert.Equal(t, 1, report.Stats.Fallbacks)
		assert.Empty(t, report.FailedFields())
		assert.Empty(t, report.FatalError)
	})
}

func TestOrchestrator_FailuresDoNotStopRun(t *testing.T) {
	loader := newFakeLoader(map[string]fakePage{
		"https://google.test/ok":    {html: googlePage(2)},
		"https://google.test/empty": {html: "<html><body><p>nothing here</p></body></html>"},
	})
	orch := newTestOrchestrator(loader, models.DefaultCrawlConfig())
	sheet := newSheet(urlColumns,
		[]string{"missing", "https://google.test/missing"},
		[]string{"empty", "https://google.test/empty"},
		[]string{"ok", "https://google.test/ok"},
	)

	report, err := orch.Run(context.Background(), sheet)
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)

	tests := []struct {
		name   string
		row    int
		status models.FieldStatus
		value  string
	}{
		{"加载失败", 0, models.FieldLoadFailed, ""},
		{"无结果", 1, models.FieldEmpty, ""},
		{"成功", 2, models.FieldOK, "Result heading number 1\nResult heading number 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, report.Rows[tt.row].Fields[0].Status)
			assert.Equal(t, tt.value, sheet.Rows[tt.row].Get("Google_Headings"))
		})
	}

	assert.Equal(t, []string{"empty:https://google.test/empty"}, loader.debug)
	assert.Equal(t, models.PathStatic, report.Rows[0].Fields[0].LoadPath)
	assert.Len(t, report.FailedFields(), 2)
	assert.Equal(t, 3, report.Stats.ProcessedRows)
}

func TestOrchestrator_ResourceUnavailableIsFatal(t *testing.T) {
	unavailable := fmt.Errorf("%w: 启动超时", models.ErrResourceUnavailable)
	loader := newFakeLoader(map[string]fakePage{
		"https://google.test/1": {html: googlePage(3)},
		"https://google.test/2": {err: unavailable},
		"https://google.test/3": {html: googlePage(3)},
	})
	orch := newTestOrchestrator(loader, models.DefaultCrawlConfig())
	sheet := newSheet(urlColumns,
		[]string{"a", "https://google.test/1"},
		[]string{"b", "https://google.test/2", "", "https://shop.test/p/2"},
		[]string{"c", "https://google.test/3"},
	)

	report, err := orch.Run(context.Background(), sheet)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrResourceUnavailable))

	require.NotNil(t, report)
	assert.Len(t, report.Rows, 2)
	assert.Equal(t, 1, report.Stats.ProcessedRows)
	assert.NotEmpty(t, report.FatalError)
	assert.Equal(t, 0, loader.loadCount("https://google.test/3"), "致命错误后不再处理后续行")
	assert.Equal(t, 0, loader.loadCount("https://shop.test/p/2"), "本行剩余字段不再加载")

	statuses := make([]models.FieldStatus, 0)
	for _, f := range report.Rows[1].Fields {
		statuses = append(statuses, f.Status)
	}
	assert.Equal(t, []models.FieldStatus{
		models.FieldUnavailable, models.FieldUnavailable, models.FieldUnavailable, models.FieldUnavailable,
	}, statuses)
}

func TestOrchestrator_PrestartBrowser(t *testing.T) {
	tests := []struct {
		name       string
		modify     func(c *models.CrawlConfig)
		starterErr error
		wantStarts int
		wantErr    bool
	}{
		{"auto模式不预启动", func(c *models.CrawlConfig) {}, nil, 0, false},
		{"dynamic模式预启动", func(c *models.CrawlConfig) { c.Mode = models.ModeDynamic }, nil, 1, false},
		{"force_js预启动", func(c *models.CrawlConfig) { c.ForceJS = true }, nil, 1, false},
		{"启动失败提前终止", func(c *models.CrawlConfig) { c.Mode = models.ModeDynamic }, models.ErrResourceUnavailable, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.DefaultCrawlConfig()
			tt.modify(&cfg)

			loader := newFakeLoader(map[string]fakePage{"https://google.test/q": {html: googlePage(1)}})
			starter := &fakeStarter{err: tt.starterErr}
			orch := newTestOrchestrator(loader, cfg)
			orch.SetBrowser(starter)

			_, err := orch.Run(context.Background(), newSheet(urlColumns, []string{"a", "https://google.test/q"}))
			assert.Equal(t, tt.wantStarts, starter.starts)
			if tt.wantErr {
				assert.True(t, errors.Is(err, models.ErrResourceUnavailable))
				assert.Equal(t, 0, loader.loadCount("https://google.test/q"))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, []bool{cfg.ForceJS}, loader.forced)
			}
		})
	}
}

func TestOrchestrator_ResumeFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	rows := [][]string{
		{"a", "https://google.test/1", "https://shop.test/missing"},
		{"b", "https://google.test/2"},
		{"c", "https://google.test/3"},
	}

	// 第一次运行: 第1行的搜索页加载失败,第2行因浏览器不可用而中止
	first := newFakeLoader(map[string]fakePage{
		"https://google.test/1": {html: googlePage(1)},
		"https://google.test/2": {err: models.ErrResourceUnavailable},
	})
	orch := newTestOrchestrator(first, models.DefaultCrawlConfig())
	cm := NewCheckpointManager(dir, "products.csv")
	orch.SetCheckpoint(cm, false)

	_, err := orch.Run(context.Background(), newSheet(urlColumns, rows...))
	require.Error(t, err)
	_, statErr := os.Stat(cm.Path())
	require.NoError(t, statErr, "中止时保留检查点")

	// 第二次运行从检查点恢复
	second := newFakeLoader(map[string]fakePage{
		"https://google.test/2": {html: googlePage(2)},
		"https://google.test/3": {html: googlePage(3)},
	})
	orch = newTestOrchestrator(second, models.DefaultCrawlConfig())
	orch.SetCheckpoint(NewCheckpointManager(dir, "products.csv"), true)

	var progress []float64
	orch.SetProgressFunc(func(done, total int, percent float64) {
		progress = append(progress, percent)
	})

	sheet := newSheet(urlColumns, rows...)
	report, err := orch.Run(context.Background(), sheet)
	require.NoError(t, err)

	assert.Equal(t, 0, second.loadCount("https://google.test/1"), "已完成的行不再加载")
	assert.Equal(t, 0, second.loadCount("https://shop.test/missing"))

	// 报告覆盖恢复的行
	require.Len(t, report.Rows, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{report.Rows[0].Index, report.Rows[1].Index, report.Rows[2].Index})
	failed := report.FailedFields()
	require.Len(t, failed, 1)
	assert.Equal(t, 0, failed[0].Row)
	assert.Equal(t, orch.DerivedColumns()[1], failed[0].Column)
	assert.Equal(t, models.FieldLoadFailed, failed[0].Status)
	assert.Equal(t, 1, report.Stats.FailedFields)
	assert.Equal(t, 3, report.Stats.OKFields)
	assert.Equal(t, "Result heading number 1", sheet.Rows[0].Get("Google_Headings"))
	assert.Equal(t, 1, report.Stats.ResumedRows)
	assert.Equal(t, 2, report.Stats.ProcessedRows)
	assert.InDelta(t, 100.0, progress[len(progress)-1], 0.001)
	assert.Len(t, progress, 3)

	_, statErr = os.Stat(cm.Path())
	assert.True(t, os.IsNotExist(statErr), "完成后删除检查点")
}

func TestOrchestrator_EditedSheetStartsOver(t *testing.T) {
	dir := t.TempDir()
	pages := map[string]fakePage{
		"https://google.test/1": {html: googlePage(1)},
		"https://google.test/2": {html: googlePage(2)},
	}

	// 第一次运行完成第1行后中止
	first := newFakeLoader(map[string]fakePage{
		"https://google.test/1": {html: googlePage(1)},
		"https://google.test/2": {err: models.ErrResourceUnavailable},
	})
	orch := newTestOrchestrator(first, models.DefaultCrawlConfig())
	orch.SetCheckpoint(NewCheckpointManager(dir, "products.csv"), false)
	_, err := orch.Run(context.Background(),
		newSheet(urlColumns, []string{"a", "https://google.test/1"}, []string{"b", "https://google.test/2"}))
	require.Error(t, err)

	// 同名文件中删除了第1行
	second := newFakeLoader(pages)
	orch = newTestOrchestrator(second, models.DefaultCrawlConfig())
	orch.SetCheckpoint(NewCheckpointManager(dir, "products.csv"), true)

	sheet := newSheet(urlColumns, []string{"b", "https://google.test/2"})
	report, err := orch.Run(context.Background(), sheet)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Stats.ResumedRows)
	assert.Equal(t, 1, second.loadCount("https://google.test/2"))
	assert.Equal(t, "Result heading number 1\nResult heading number 2", sheet.Rows[0].Get("Google_Headings"),
		"旧第1行的结果不能恢复到新的第1行")
}

func TestOrchestrator_InvalidCheckpointStartsOver(t *testing.T) {
	dir := t.TempDir()
	cm := NewCheckpointManager(dir, "other.csv")
	require.NoError(t, os.WriteFile(cm.Path(), []byte(`{"input_file":"different.csv","completed_rows":1,"derived":[{}]}`), 0644))

	loader := newFakeLoader(map[string]fakePage{"https://google.test/1": {html: googlePage(1)}})
	orch := newTestOrchestrator(loader, models.DefaultCrawlConfig())
	orch.SetCheckpoint(cm, true)

	report, err := orch.Run(context.Background(), newSheet(urlColumns, []string{"a", "https://google.test/1"}))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Stats.ResumedRows)
	assert.Equal(t, 1, loader.loadCount("https://google.test/1"))
}

func TestOrchestrator_CanceledContext(t *testing.T) {
	loader := newFakeLoader(map[string]fakePage{"https://google.test/1": {html: googlePage(1)}})
	orch := newTestOrchestrator(loader, models.DefaultCrawlConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := orch.Run(ctx, newSheet(urlColumns, []string{"a", "https://google.test/1"}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Rows)
	assert.Equal(t, 0, loader.loadCount("https://google.test/1"))
}

func TestOrchestrator_Idempotent(t *testing.T) {
	pages := map[string]fakePage{
		"https://google.test/q": {html: googlePage(8)},
		"https://shop.test/s":   {html: searchPage},
		"https://shop.test/p/1": {html: detailPage},
	}
	values := []string{"kettle", "https://google.test/q", "https://shop.test/s", "https://shop.test/p/1"}

	run := func() map[string]string {
		orch := newTestOrchestrator(newFakeLoader(pages), models.DefaultCrawlConfig())
		sheet := newSheet(urlColumns, values)
		_, err := orch.Run(context.Background(), sheet)
		require.NoError(t, err)
		row := sheet.Rows[0]
		values := make(map[string]string)
		for _, column := range row.Columns() {
			values[column] = row.Get(column)
		}
		return values
	}

	assert.Equal(t, run(), run())
}
