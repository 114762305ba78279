package extractors

// AboutItems 商品特性("About This Item")策略链
func AboutItems() *Chain {
	bullets := TextFilter{}

	listItems := TextFilter{
		MinLen:       20,
		MaxLen:       500,
		Exclude:      PriceOrParen,
		RankByLength: true,
		Cap:          10,
	}

	paragraphs := TextFilter{
		MinLen: 50,
		MaxLen: 1000,
		Cap:    5,
	}

	return &Chain{
		Name: "about_items",
		Strategies: []Strategy{
			NewListStrategy("feature-bullets", "#feature-bullets li", bullets),
			NewListStrategy("detail-bullets", "#detailBullets_feature_div li", bullets),
			NewListStrategy("ranked-list-items", "li", listItems),
			NewListStrategy("paragraphs", "p", paragraphs),
		},
	}
}
