package extractors

// Google标题长度范围
const (
	headingMinLen = 10
	headingMaxLen = 200
)

// GoogleHeadings Google搜索结果标题策略链
// count 为结果数量上限
func GoogleHeadings(count int) *Chain {
	filter := TextFilter{
		MinLen: headingMinLen,
		MaxLen: headingMaxLen,
		Cap:    count,
	}

	return &Chain{
		Name: "google_headings",
		Strategies: []Strategy{
			NewListStrategy("search-results-h3", "#search h3", filter),
			NewListStrategy("all-h3", "h3", filter),
			NewListStrategy("role-heading", "[role=heading]", filter),
		},
	}
}
