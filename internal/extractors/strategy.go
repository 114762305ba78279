package extractors

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
)

// Strategy 一种提取策略
// 策略是文档的纯函数,相同文档总是返回相同结果
type Strategy interface {
	// Name 策略名称,记录在字段结果中
	Name() string

	// Extract 从文档中提取,无结果时返回nil或空结果
	Extract(doc *goquery.Document) *models.ExtractionResult
}

// ParseHTML 解析HTML为goquery文档
func ParseHTML(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// ListStrategy 选择器 + 文本过滤器组成的列表型策略
type ListStrategy struct {
	name     string
	selector cascadia.Selector
	filter   TextFilter
}

// NewListStrategy 创建列表型策略,选择器在创建时编译
// 选择器无效时panic,策略表都是编译期常量
func NewListStrategy(name, selector string, filter TextFilter) *ListStrategy {
	return &ListStrategy{
		name:     name,
		selector: cascadia.MustCompile(selector),
		filter:   filter,
	}
}

// Name 策略名称
func (s *ListStrategy) Name() string {
	return s.name
}

// Extract 按文档顺序收集匹配元素的文本,再经过滤器处理
func (s *ListStrategy) Extract(doc *goquery.Document) *models.ExtractionResult {
	var candidates []string
	doc.FindMatcher(s.selector).Each(func(_ int, sel *goquery.Selection) {
		candidates = append(candidates, sel.Text())
	})

	items := s.filter.Apply(candidates)
	if len(items) == 0 {
		return nil
	}
	return &models.ExtractionResult{Strategy: s.name, Items: items}
}

// PairFunc 键值型提取函数
type PairFunc func(doc *goquery.Document) []models.KV

// PairStrategy 键值型策略
type PairStrategy struct {
	name string
	fn   PairFunc
}

// NewPairStrategy 创建键值型策略
func NewPairStrategy(name string, fn PairFunc) *PairStrategy {
	return &PairStrategy{name: name, fn: fn}
}

// Name 策略名称
func (s *PairStrategy) Name() string {
	return s.name
}

// Extract 执行提取
func (s *PairStrategy) Extract(doc *goquery.Document) *models.ExtractionResult {
	pairs := s.fn(doc)
	if len(pairs) == 0 {
		return nil
	}
	return &models.ExtractionResult{Strategy: s.name, Pairs: pairs}
}

// Chain 有序策略链
// 第一个返回非空结果的策略胜出,之后的策略不再调用
type Chain struct {
	Name       string
	Strategies []Strategy
}

// Run 依次执行策略
// 全部为空时返回 models.ErrExtractionEmpty
func (c *Chain) Run(doc *goquery.Document) (*models.ExtractionResult, error) {
	for _, s := range c.Strategies {
		result := s.Extract(doc)
		if result.Empty() {
			continue
		}
		if result.Strategy == "" {
			result.Strategy = s.Name()
		}
		return result, nil
	}
	return nil, models.ErrExtractionEmpty
}

// StrategyNames 返回策略名称列表(按优先级)
func (c *Chain) StrategyNames() []string {
	names := make([]string, 0, len(c.Strategies))
	for _, s := range c.Strategies {
		names = append(names, s.Name())
	}
	return names
}
