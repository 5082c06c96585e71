package listing

import "strings"

// Section は一覧ページの行区分を表します。
type Section string

const (
	// SectionListed は新規掲載分の行区分です。
	SectionListed Section = "掲載"
	// SectionDeleted は削除分の行区分です。
	SectionDeleted Section = "削除"
)

// 区分を判定するための見出しマーカー
const (
	listedHeadingMarker  = "掲載分"
	deletedHeadingMarker = "削除分"
)

// headerProductName は、一覧テーブルのヘッダ行を誤ってデータとして
// 取り込まないための販売名セルの番兵値です。
const headerProductName = "販売名"

// Record は、一覧ページから取得した1件分の添付文書情報です。
// 承認番号・認証番号は番号取得オプションが有効な場合にのみ設定されます。
type Record struct {
	Date            string  // ISO形式の日付 (YYYY-MM-DD)
	Section         Section // 掲載 / 削除
	ProductName     string
	CompanyName     string // 「製造販売／」の接頭辞は除去済み
	Reason          string
	ApprovalNo      string
	CertificationNo string
	DetailURL       string // 絶対URL。リンクのない行では空
	PDFURL          string // DetailURL から導出。導出できない場合は空
}

// classifySection は、テーブル直前の見出しテキストから区分を判定します。
// どちらのマーカーも含まない見出しの場合は false を返し、そのテーブルは
// 処理対象外となります。
func classifySection(heading string) (Section, bool) {
	switch {
	case strings.Contains(heading, listedHeadingMarker):
		return SectionListed, true
	case strings.Contains(heading, deletedHeadingMarker):
		return SectionDeleted, true
	default:
		return "", false
	}
}
