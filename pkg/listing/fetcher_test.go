package listing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-pmda-docs/pkg/listing"
)

const (
	testBaseURL    = "https://www.info.pmda.go.jp/ysearch/tenpulist.jsp?DATE="
	testDetailBase = "https://www.info.pmda.go.jp"
)

// ======================================================================
// モック (Mock) の定義
// ======================================================================

// MockFetcher はテスト用の listing.Fetcher インターフェースの実装です。
// URLごとに返すHTMLを登録します。未登録のURLはエラーになります。
type MockFetcher struct {
	pages      map[string]string
	fetchError error
	requested  []string
}

func (m *MockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.requested = append(m.requested, url)
	if m.fetchError != nil {
		return nil, m.fetchError
	}
	html, ok := m.pages[url]
	if !ok {
		return nil, errors.New("unexpected url: " + url)
	}
	return []byte(html), nil
}

func newScraper(t *testing.T, fetcher listing.Fetcher) *listing.Scraper {
	t.Helper()
	logf := func(format string, args ...any) {}
	s, err := listing.NewScraper(fetcher, listing.Config{
		BaseURL:       testBaseURL,
		DetailBaseURL: testDetailBase,
	}, logf)
	require.NoError(t, err)
	return s
}

// ======================================================================
// テスト関数
// ======================================================================

func TestNewScraper(t *testing.T) {
	t.Run("error_with_nil_fetcher", func(t *testing.T) {
		s, err := listing.NewScraper(nil, listing.Config{}, nil)
		assert.Error(t, err)
		assert.Nil(t, s)
		assert.Contains(t, err.Error(), "Fetcher cannot be nil")
	})
}

func TestScrapeDate(t *testing.T) {
	const date = "2024-01-15"
	listingURL := testBaseURL + "20240115"

	testCases := []struct {
		name     string
		html     string
		expected []listing.Record
	}{
		{
			// 掲載分の見出しに続くテーブルの行は Section=掲載 となり、
			// リンクから詳細URLとPDF URLが導出される
			name: "listed_section_with_link",
			html: `<html><body>
				<h2>新規掲載分</h2>
				<table><tr>
					<td><a href="/ygo/pack/123/456/">ProductX</a></td>
					<td>製造販売／ACME</td>
					<td>recall</td>
				</tr></table>
			</body></html>`,
			expected: []listing.Record{{
				Date:        date,
				Section:     listing.SectionListed,
				ProductName: "ProductX",
				CompanyName: "ACME",
				Reason:      "recall",
				DetailURL:   testDetailBase + "/ygo/pack/123/456/",
				PDFURL:      testDetailBase + "/ygo/pdf/123_456/",
			}},
		},
		{
			// 削除分の見出しなら Section=削除
			name: "deleted_section",
			html: `<html><body>
				<h2>削除分</h2>
				<table><tr>
					<td><a href="/ygo/pack/123/456/">ProductX</a></td>
					<td>製造販売／ACME</td>
					<td>recall</td>
				</tr></table>
			</body></html>`,
			expected: []listing.Record{{
				Date:        date,
				Section:     listing.SectionDeleted,
				ProductName: "ProductX",
				CompanyName: "ACME",
				Reason:      "recall",
				DetailURL:   testDetailBase + "/ygo/pack/123/456/",
				PDFURL:      testDetailBase + "/ygo/pdf/123_456/",
			}},
		},
		{
			// リンクのないセルは自身のテキストを販売名とし、URLは空のまま
			name: "row_without_link",
			html: `<html><body>
				<h2>掲載分</h2>
				<table><tr>
					<td>ProductY</td>
					<td>ACME</td>
					<td>update</td>
				</tr></table>
			</body></html>`,
			expected: []listing.Record{{
				Date:        date,
				Section:     listing.SectionListed,
				ProductName: "ProductY",
				CompanyName: "ACME",
				Reason:      "update",
			}},
		},
		{
			// ヘッダ行 (販売名) とセル不足の行は取り込まない
			name: "header_and_short_rows_skipped",
			html: `<html><body>
				<h2>掲載分</h2>
				<table>
					<tr><td>販売名</td><td>企業名</td><td>理由</td></tr>
					<tr><td>only two</td><td>cells</td></tr>
					<tr><td>ProductZ</td><td>ACME</td><td>recall</td></tr>
				</table>
			</body></html>`,
			expected: []listing.Record{{
				Date:        date,
				Section:     listing.SectionListed,
				ProductName: "ProductZ",
				CompanyName: "ACME",
				Reason:      "recall",
			}},
		},
		{
			// 区分を判定できない見出しの直後のテーブルは丸ごと対象外
			name: "unclassified_table_skipped",
			html: `<html><body>
				<h2>お知らせ</h2>
				<table><tr><td>Ignored</td><td>ACME</td><td>note</td></tr></table>
				<h2>掲載分</h2>
				<table><tr><td>Kept</td><td>ACME</td><td>recall</td></tr></table>
			</body></html>`,
			expected: []listing.Record{{
				Date:        date,
				Section:     listing.SectionListed,
				ProductName: "Kept",
				CompanyName: "ACME",
				Reason:      "recall",
			}},
		},
		{
			// 見出しのないテーブルも対象外
			name: "table_without_heading_skipped",
			html: `<html><body>
				<table><tr><td>Ignored</td><td>ACME</td><td>note</td></tr></table>
			</body></html>`,
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &MockFetcher{pages: map[string]string{listingURL: tc.html}}
			s := newScraper(t, fetcher)

			actual := s.ScrapeDate(context.Background(), date, false)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

// TestScrapeDateFetchError は、ページ取得失敗がその日付に閉じて
// 空のスライスになることを確認します。
func TestScrapeDateFetchError(t *testing.T) {
	fetcher := &MockFetcher{fetchError: errors.New("network timeout")}
	s := newScraper(t, fetcher)

	actual := s.ScrapeDate(context.Background(), "2024-01-15", false)
	assert.Empty(t, actual)
}

// TestScrapeDateWithNumbers は、番号取得が掲載分の行に対してのみ
// 実行されることを確認します。
func TestScrapeDateWithNumbers(t *testing.T) {
	const date = "2024-01-15"
	listingURL := testBaseURL + "20240115"
	bodyURL := testDetailBase + "/ygo/pack/123/456/456?view=body"

	listingHTML := `<html><body>
		<h2>掲載分</h2>
		<table><tr>
			<td><a href="/ygo/pack/123/456/">ProductX</a></td>
			<td>製造販売／ACME</td>
			<td>recall</td>
		</tr></table>
		<h2>削除分</h2>
		<table><tr>
			<td><a href="/ygo/pack/777/888/">ProductGone</a></td>
			<td>ACME</td>
			<td>expired</td>
		</tr></table>
	</body></html>`

	bodyHTML := `<html><body>
		<h3 class="section_header">承認番号</h3><div> A100 </div>
		<h3 class="section_header">認証番号</h3><div>C200</div>
	</body></html>`

	fetcher := &MockFetcher{pages: map[string]string{
		listingURL: listingHTML,
		bodyURL:    bodyHTML,
	}}
	s := newScraper(t, fetcher)

	records := s.ScrapeDate(context.Background(), date, true)
	require.Len(t, records, 2)

	assert.Equal(t, "A100", records[0].ApprovalNo)
	assert.Equal(t, "C200", records[0].CertificationNo)

	// 削除分の行では番号取得を試みない
	assert.Empty(t, records[1].ApprovalNo)
	assert.Empty(t, records[1].CertificationNo)
	assert.NotContains(t, fetcher.requested, testDetailBase+"/ygo/pack/777/888/888?view=body")
}

// cancellingFetcher は、一覧ページの取得後に cancel を呼ぶ Fetcher です。
// 行処理の途中でキャンセルが要求された状況を再現します。
type cancellingFetcher struct {
	pages  map[string]string
	cancel context.CancelFunc
	served int
}

func (f *cancellingFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	html, ok := f.pages[url]
	if !ok {
		return nil, errors.New("unexpected url: " + url)
	}
	f.served++
	if f.served >= 2 {
		// 1件目の番号取得を返した後にキャンセルを要求する
		f.cancel()
	}
	return []byte(html), nil
}

// TestScrapeDateCancelReturnsPartial は、キャンセル検知までに蓄積した行が
// 失われないこと (早期リターンであって失敗ではないこと) を確認します。
func TestScrapeDateCancelReturnsPartial(t *testing.T) {
	const date = "2024-01-15"
	listingURL := testBaseURL + "20240115"
	bodyURL := testDetailBase + "/ygo/pack/1/10/10?view=body"

	listingHTML := `<html><body>
		<h2>掲載分</h2>
		<table>
			<tr><td><a href="/ygo/pack/1/10/">First</a></td><td>ACME</td><td>recall</td></tr>
			<tr><td><a href="/ygo/pack/2/20/">Second</a></td><td>ACME</td><td>recall</td></tr>
		</table>
	</body></html>`
	bodyHTML := `<html><body><h3 class="section_header">承認番号</h3><div>A1</div></body></html>`

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &cancellingFetcher{
		pages: map[string]string{
			listingURL: listingHTML,
			bodyURL:    bodyHTML,
		},
		cancel: cancel,
	}
	s, err := listing.NewScraper(fetcher, listing.Config{
		BaseURL:       testBaseURL,
		DetailBaseURL: testDetailBase,
	}, func(format string, args ...any) {})
	require.NoError(t, err)

	records := s.ScrapeDate(ctx, date, true)
	require.Len(t, records, 1)
	assert.Equal(t, "First", records[0].ProductName)
	assert.Equal(t, "A1", records[0].ApprovalNo)
}
