package listing

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/go-pmda-docs/pkg/pmdaurl"
)

// 本文ページで番号を示す見出しラベル
const (
	approvalLabel      = "承認番号"
	certificationLabel = "認証番号"
)

// FetchNumbers は、詳細ページの本文URLから承認番号・認証番号を取得します。
// 本文URLが導出できない場合は通信せず空文字列を返します。取得・解析の失敗も
// ログ出力のうえ両方とも空文字列に落とし、呼び出し元へは伝播させません。
// どちらか一方だけが見つかることもあり、見つからない番号は空文字列になります。
func (s *Scraper) FetchNumbers(ctx context.Context, detailURL string) (approvalNo, certificationNo string) {
	bodyURL := pmdaurl.DetailToBody(s.cfg.DetailBaseURL, detailURL)
	if bodyURL == "" {
		return "", ""
	}

	htmlBytes, err := s.fetcher.FetchBytes(ctx, bodyURL)
	if err != nil {
		s.logf("    番号取得エラー: %v", err)
		return "", ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if err != nil {
		s.logf("    番号取得エラー: %v", err)
		return "", ""
	}

	certificationNo = sectionHeaderValue(doc, certificationLabel)
	approvalNo = sectionHeaderValue(doc, approvalLabel)
	return approvalNo, certificationNo
}

// sectionHeaderValue は、<h3 class="section_header"> のうち見出しテキストが
// label に一致する最初の要素を探し、直後の <div> ブロックのテキストを返します。
// 見つからない場合は空文字列です。
func sectionHeaderValue(doc *goquery.Document, label string) string {
	var value string
	doc.Find("h3.section_header").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.TrimSpace(h.Text()) != label {
			return true
		}
		value = strings.TrimSpace(h.NextAllFiltered("div").First().Text())
		return false
	})
	return value
}
