package csvstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/go-pmda-docs/pkg/listing"
)

// ----------------------------------------------------------------------
// 定数定義 (CSVの形式)
// ----------------------------------------------------------------------
const (
	// FilenamePrefix は収集結果CSVのファイル名接頭辞です。
	FilenamePrefix = "pmda_list_"
	// timestampLayout は秒精度のタイムスタンプで、別々の秒に開始された
	// 実行間でファイル名が一意になります。
	timestampLayout = "20060102_150405"
	csvExtension    = ".csv"
)

// 列名。書き込みはこの順序で固定です。
const (
	ColDate            = "日付"
	ColSection         = "区分"
	ColProductName     = "販売名"
	ColCompanyName     = "企業名"
	ColReason          = "理由"
	ColApprovalNo      = "承認番号"
	ColCertificationNo = "認証番号"
	ColDetailURL       = "詳細URL"
	ColPDFURL          = "PDF_URL"
)

// Columns は書き込み時の固定列順です。
var Columns = []string{
	ColDate, ColSection, ColProductName, ColCompanyName, ColReason,
	ColApprovalNo, ColCertificationNo, ColDetailURL, ColPDFURL,
}

// Excel等での文字化けを防ぐためのUTF-8 BOM
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Write は records を dir 配下のタイムスタンプ付きCSVへ保存し、保存先の
// パスを返します。レコードが0件でもヘッダ行だけのファイルを作成します。
func Write(dir string, records []listing.Record, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}

	path := filepath.Join(dir, FilenamePrefix+now.Format(timestampLayout)+csvExtension)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("CSVファイルの作成に失敗しました: %w", err)
	}

	if _, err := f.Write(utf8BOM); err != nil {
		f.Close()
		return "", fmt.Errorf("CSVファイルの書き込みに失敗しました: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		f.Close()
		return "", fmt.Errorf("CSVヘッダの書き込みに失敗しました: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Date, string(r.Section), r.ProductName, r.CompanyName, r.Reason,
			r.ApprovalNo, r.CertificationNo, r.DetailURL, r.PDFURL,
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return "", fmt.Errorf("CSV行の書き込みに失敗しました: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("CSVファイルの書き込みに失敗しました: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("CSVファイルのクローズに失敗しました: %w", err)
	}
	return path, nil
}

// Row は読み戻したCSVの1行を、列名から値を引ける形で保持します。
// 手作業で列が並べ替えられたファイルも列名で解決できます。
type Row map[string]string

// ToRecord は行を listing.Record へ変換します。存在しない列は空文字列です。
func (r Row) ToRecord() listing.Record {
	return listing.Record{
		Date:            r[ColDate],
		Section:         listing.Section(r[ColSection]),
		ProductName:     r[ColProductName],
		CompanyName:     r[ColCompanyName],
		Reason:          r[ColReason],
		ApprovalNo:      r[ColApprovalNo],
		CertificationNo: r[ColCertificationNo],
		DetailURL:       r[ColDetailURL],
		PDFURL:          r[ColPDFURL],
	}
}

// Read は path のCSVをヘッダ行ベースで読み込みます。列の順序には依存せず、
// 先頭のBOMは除去します。
func Read(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("CSVファイルのオープンに失敗しました: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("CSVヘッダの読み込みに失敗しました: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV行の読み込みに失敗しました: %w", err)
		}

		row := make(Row, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
