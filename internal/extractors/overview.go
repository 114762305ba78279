package extractors

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
)

var (
	rowSelector         = cascadia.MustCompile("tr")
	headerCellSelector  = cascadia.MustCompile("th")
	dataCellSelector    = cascadia.MustCompile("td")
	detailEntrySelector = cascadia.MustCompile("[class*='detail-entry']")
)

// ProductOverview 商品参数(键值对)策略链
func ProductOverview() *Chain {
	return &Chain{
		Name: "product_overview",
		Strategies: []Strategy{
			NewPairStrategy("table-rows", tableRowPairs),
			NewPairStrategy("detail-entries", detailEntryPairs),
		},
	}
}

// tableRowPairs 任意同时含有th和td的表格行,th为标签,td为值
// 标签重复时保留第一次出现的值
func tableRowPairs(doc *goquery.Document) []models.KV {
	var pairs []models.KV
	seen := make(map[string]bool)

	doc.FindMatcher(rowSelector).Each(func(_ int, row *goquery.Selection) {
		th := row.FindMatcher(headerCellSelector).First()
		td := row.FindMatcher(dataCellSelector).First()
		if th.Length() == 0 || td.Length() == 0 {
			return
		}

		label := cleanLabel(th.Text())
		value := Normalize(td.Text())
		if label == "" || value == "" || seen[label] {
			return
		}
		seen[label] = true
		pairs = append(pairs, models.KV{Label: label, Value: value})
	})

	return pairs
}

// detailEntryPairs class中含detail-entry的元素,文本按第一个冒号拆分
func detailEntryPairs(doc *goquery.Document) []models.KV {
	var pairs []models.KV
	seen := make(map[string]bool)

	doc.FindMatcher(detailEntrySelector).Each(func(_ int, entry *goquery.Selection) {
		text := Normalize(entry.Text())
		label, value, ok := strings.Cut(text, ":")
		if !ok {
			return
		}

		label = cleanLabel(label)
		value = Normalize(value)
		if label == "" || value == "" || seen[label] {
			return
		}
		seen[label] = true
		pairs = append(pairs, models.KV{Label: label, Value: value})
	})

	return pairs
}

// cleanLabel 规范化标签并去掉末尾冒号
func cleanLabel(s string) string {
	s = Normalize(s)
	s = strings.TrimRight(s, ": ")
	return s
}
