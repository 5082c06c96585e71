package listing

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"

	"github.com/shouni/go-pmda-docs/pkg/pmdaurl"
	"github.com/shouni/go-pmda-docs/pkg/task"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// Fetcher は、ページの生バイト配列を取得する機能のインターフェースを定義します。
// Scraper は、この抽象に依存します。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// LogFunc はログ1行を受け取る出力先です。
type LogFunc func(format string, args ...any)

// Config は Scraper の動作設定です。
type Config struct {
	// BaseURL は一覧ページURLのテンプレートで、末尾に YYYYMMDD を連結します。
	BaseURL string
	// DetailBaseURL は詳細ページの相対リンクを絶対URLにするためのベースです。
	DetailBaseURL string
	// EnrichWait は番号取得の呼び出し後に待機する時間です。
	EnrichWait time.Duration
}

// Scraper は、一覧ページの取得・解析と番号取得を管理します。
type Scraper struct {
	fetcher Fetcher
	cfg     Config
	logf    LogFunc
}

// NewScraper は、新しいScraperのインスタンスを生成します。
func NewScraper(fetcher Fetcher, cfg Config, logf LogFunc) (*Scraper, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("listing.NewScraper: Fetcher cannot be nil")
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Scraper{
		fetcher: fetcher,
		cfg:     cfg,
		logf:    logf,
	}, nil
}

// ScrapeDate は、指定日付 (YYYY-MM-DD) の一覧ページを取得・解析します。
// ページ全体の取得・解析に失敗した日は、ログ出力のうえ空のスライスを返します
// (失敗はその日付に閉じ、日付範囲全体を中断させません)。
// キャンセルは各行の処理前と番号取得の呼び出し前に検知し、その時点までに
// 蓄積した結果を返します。
func (s *Scraper) ScrapeDate(ctx context.Context, dateStr string, fetchNumbers bool) []Record {
	url := s.cfg.BaseURL + strings.ReplaceAll(dateStr, "-", "")

	htmlBytes, err := s.fetcher.FetchBytes(ctx, url)
	if err != nil {
		s.logf("  エラー: %v", err)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if err != nil {
		s.logf("  エラー: HTML解析に失敗しました: %v", err)
		return nil
	}

	var results []Record
	var lastHeading string
	cancelled := false

	// <h2> と <table> をドキュメント順に走査し、各テーブルを直前の見出しで
	// 区分します。見出しが掲載分・削除分のどちらでもないテーブルは対象外です。
	doc.Find("h2, table").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.Is("h2") {
			lastHeading = sel.Text()
			return true
		}

		section, ok := classifySection(lastHeading)
		if !ok {
			return true
		}

		results, cancelled = s.scrapeTable(ctx, sel, dateStr, section, fetchNumbers, results)
		return !cancelled
	})

	return results
}

// scrapeTable は、区分が確定したテーブルの各行を解析して results へ追加します。
// キャンセルを検知した場合は cancelled=true を返し、以降の行は処理しません。
func (s *Scraper) scrapeTable(ctx context.Context, table *goquery.Selection, dateStr string, section Section, fetchNumbers bool, results []Record) ([]Record, bool) {
	cancelled := false

	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		// 行単位のキャンセルチェックポイント
		if ctx.Err() != nil {
			cancelled = true
			return false
		}

		rec, ok := s.parseRow(row, dateStr, section)
		if !ok {
			return true
		}

		if fetchNumbers && rec.DetailURL != "" && section == SectionListed {
			// 番号取得前のキャンセルチェックポイント
			if ctx.Err() != nil {
				cancelled = true
				return false
			}
			s.logf("    番号取得中: %s...", truncateRunes(rec.ProductName, 30))
			rec.ApprovalNo, rec.CertificationNo = s.FetchNumbers(ctx, rec.DetailURL)
			task.Sleep(ctx, s.cfg.EnrichWait)
		}

		results = append(results, rec)
		return true
	})

	return results, cancelled
}

// parseRow は <tr> を1件の Record に変換します。セルが3つ未満の行、
// 販売名が空またはヘッダ行のものは対象外として false を返します。
func (s *Scraper) parseRow(row *goquery.Selection, dateStr string, section Section) (Record, bool) {
	cells := row.Find("td")
	if cells.Length() < 3 {
		return Record{}, false
	}

	var productName, detailURL string
	nameCell := cells.Eq(0)
	if link := nameCell.Find("a").First(); link.Length() > 0 {
		productName = textUtils.NormalizeText(link.Text())
		href, _ := link.Attr("href")
		detailURL = s.cfg.DetailBaseURL + href
	} else {
		productName = textUtils.NormalizeText(nameCell.Text())
	}

	if productName == "" || productName == headerProductName {
		return Record{}, false
	}

	company := textUtils.NormalizeText(cells.Eq(1).Text())
	company = strings.ReplaceAll(company, "製造販売／", "")
	reason := textUtils.NormalizeText(cells.Eq(2).Text())

	return Record{
		Date:        dateStr,
		Section:     section,
		ProductName: productName,
		CompanyName: company,
		Reason:      reason,
		DetailURL:   detailURL,
		PDFURL:      pmdaurl.DetailToPDF(s.cfg.DetailBaseURL, detailURL),
	}, true
}

// truncateRunes は、ログ表示用に文字数 (rune数) で切り詰めます。
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
