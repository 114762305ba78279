package extractors

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// 不可见的方向标记,常见于商品页面的标签文本
var invisibleReplacer = strings.NewReplacer(
	"\u200e", "", // LRM
	"\u200f", "", // RLM
	"\u200b", "", // 零宽空格
	"\ufeff", "",
)

// Normalize 规范化文本: 移除不可见标记,合并连续空白,去除首尾空白
func Normalize(s string) string {
	s = invisibleReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Predicate 排除谓词,返回true表示丢弃该文本
type Predicate func(s string) bool

// ContainsCurrency 包含货币符号
func ContainsCurrency(s string) bool {
	return strings.ContainsAny(s, "$€£¥₹")
}

// LeadingParen 以左括号开头
func LeadingParen(s string) bool {
	return strings.HasPrefix(s, "(")
}

// PriceOrParen 标题与列表项共用的排除规则
var PriceOrParen = []Predicate{ContainsCurrency, LeadingParen}

// TextFilter 文本后置过滤器
//
// 处理顺序固定: 规范化 → 去空 → 长度范围 → 排除谓词 → 去重 → 跳过前N项 → 按长度排序(可选) → 截断
type TextFilter struct {
	MinLen       int         // 最小长度(按字符计),0为不限制
	MaxLen       int         // 最大长度(按字符计),0为不限制
	Exclude      []Predicate // 排除谓词
	Skip         int         // 跳过去重后的前N项
	RankByLength bool        // 按长度降序(稳定排序)
	Cap          int         // 结果数量上限,0为不限制
}

// Apply 对候选文本执行过滤
func (f TextFilter) Apply(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	result := make([]string, 0, len(candidates))

	for _, c := range candidates {
		text := Normalize(c)
		if text == "" {
			continue
		}

		n := utf8.RuneCountInString(text)
		if f.MinLen > 0 && n < f.MinLen {
			continue
		}
		if f.MaxLen > 0 && n > f.MaxLen {
			continue
		}

		if f.excluded(text) {
			continue
		}

		if seen[text] {
			continue
		}
		seen[text] = true
		result = append(result, text)
	}

	if f.Skip > 0 {
		if f.Skip >= len(result) {
			return []string{}
		}
		result = result[f.Skip:]
	}

	if f.RankByLength {
		sort.SliceStable(result, func(i, j int) bool {
			return utf8.RuneCountInString(result[i]) > utf8.RuneCountInString(result[j])
		})
	}

	if f.Cap > 0 && len(result) > f.Cap {
		result = result[:f.Cap]
	}

	return result
}

func (f TextFilter) excluded(s string) bool {
	for _, p := range f.Exclude {
		if p(s) {
			return true
		}
	}
	return false
}
