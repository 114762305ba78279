package extractors

// 搜索结果标题长度范围
const (
	titleMinLen = 10
	titleMaxLen = 300
)

// SearchTitles 商品搜索结果页标题策略链
func SearchTitles(count int) *Chain {
	filter := TextFilter{
		MinLen:  titleMinLen,
		MaxLen:  titleMaxLen,
		Exclude: PriceOrParen,
		Cap:     count,
	}

	// 通用h2的第一项一般是列表页自身的标题
	generic := filter
	generic.Skip = 1

	return &Chain{
		Name: "search_titles",
		Strategies: []Strategy{
			NewListStrategy("search-result-h2", "[data-component-type='s-search-result'] h2", filter),
			NewListStrategy("title-recipe", "[data-cy='title-recipe'] span, .s-title-instructions-style span", filter),
			NewListStrategy("product-title-links", "a.a-link-normal span.a-text-normal", filter),
			NewListStrategy("generic-h2", "h2", generic),
		},
	}
}
