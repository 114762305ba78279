// Package extractors 实现基于启发式规则的HTML字段提取。
//
// 每个字段类别对应一条有序策略链(Chain),第一个返回非空结果的策略胜出:
//   - Google搜索标题: GoogleHeadings
//   - 搜索结果页标题: SearchTitles
//   - 商品参数: ProductOverview
//   - 商品特性: AboutItems
//
// 策略都是 *goquery.Document 的纯函数,选择器使用cascadia预编译。
package extractors
