package extractors

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// VisibleText 提取body中可见文本(移除script/style/noscript),已规范化
func VisibleText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body = body.Clone()
	body.Find("script, style, noscript, template").Remove()
	return Normalize(body.Text())
}

// VisibleTextLength 可见文本长度(按字符计)
func VisibleTextLength(doc *goquery.Document) int {
	return utf8.RuneCountInString(VisibleText(doc))
}
