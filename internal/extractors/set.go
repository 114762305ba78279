package extractors

// Set 一次运行使用的全部策略链
type Set struct {
	Google   *Chain
	Search   *Chain
	Overview *Chain
	About    *Chain
}

// NewSet 按结果数量上限创建策略链集合
func NewSet(googleCount, searchCount int) *Set {
	return &Set{
		Google:   GoogleHeadings(googleCount),
		Search:   SearchTitles(searchCount),
		Overview: ProductOverview(),
		About:    AboutItems(),
	}
}
