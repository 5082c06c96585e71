package hospital

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// ヘッダ名の部分一致で対象列を特定するためのマーカー
const (
	approvalMarker      = "承認番号"
	certificationMarker = "認証番号"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// AllowList は、病院内機器リストから構築した承認番号・認証番号の集合です。
// 構築後は読み取り専用で、1回のダウンロード実行の間だけ使われます。
type AllowList struct {
	Approvals      map[string]struct{}
	Certifications map[string]struct{}
}

// Match は、行の承認番号・認証番号のいずれかが集合に含まれるかを判定します。
// 空の番号は照合しません。
func (l *AllowList) Match(approvalNo, certificationNo string) bool {
	if approvalNo != "" {
		if _, ok := l.Approvals[approvalNo]; ok {
			return true
		}
	}
	if certificationNo != "" {
		if _, ok := l.Certifications[certificationNo]; ok {
			return true
		}
	}
	return false
}

// Load は、機器リストCSVを読み込み番号の集合を構築します。
// 列名に「承認番号」「認証番号」を含む最初の列をそれぞれの取得元とします。
// どちらの列も存在しないファイルは空集合を返します (ローダのエラーでは
// ありません。空集合との照合では どの行も一致しません)。
func Load(path string) (*AllowList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("機器リストの読み込みに失敗しました: %w", err)
	}

	decoded, err := decodeBytes(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("機器リストのヘッダ読み込みに失敗しました: %w", err)
	}

	approvalCol, certCol := -1, -1
	for i, name := range header {
		if approvalCol < 0 && strings.Contains(name, approvalMarker) {
			approvalCol = i
		}
		if certCol < 0 && strings.Contains(name, certificationMarker) {
			certCol = i
		}
	}

	list := &AllowList{
		Approvals:      make(map[string]struct{}),
		Certifications: make(map[string]struct{}),
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("機器リストの行読み込みに失敗しました: %w", err)
		}

		addColumn(list.Approvals, record, approvalCol)
		addColumn(list.Certifications, record, certCol)
	}
	return list, nil
}

func addColumn(set map[string]struct{}, record []string, col int) {
	if col < 0 || col >= len(record) {
		return
	}
	value := strings.TrimSpace(record[col])
	if value != "" {
		set[value] = struct{}{}
	}
}

// decodeBytes は、UTF-8として不正なバイト列を Shift_JIS とみなして変換します。
// 病院内リストはExcelからのエクスポートで Shift_JIS になっていることが多い
// ためです。先頭のBOMは除去します。
func decodeBytes(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}

	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("機器リストの文字コード変換に失敗しました: %w", err)
	}
	return decoded, nil
}
