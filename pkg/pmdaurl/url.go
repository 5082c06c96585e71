package pmdaurl

import "strings"

// ----------------------------------------------------------------------
// 定数定義 (PMDAのURLパス構成)
// ----------------------------------------------------------------------
const (
	// 詳細ページのパスは /ygo/pack/{companyID}/{docID}/ の構成
	packSegmentYgo  = "ygo"
	packSegmentPack = "pack"

	// PDF配布ディレクトリのパス接頭辞
	pdfPathPrefix = "ygo/pdf"
)

// DetailToPDF は、詳細ページURLからPDF配布ディレクトリのURLを導出します。
// パスが ygo/pack/{companyID}/{docID} の4セグメント以上の構成でない場合は
// 空文字列を返します。入力が空の場合も空文字列です。
func DetailToPDF(detailBase, detailURL string) string {
	parts, ok := packSegments(detailBase, detailURL)
	if !ok {
		return ""
	}
	companyID := parts[2]
	docID := parts[3]
	return detailBase + "/" + pdfPathPrefix + "/" + companyID + "_" + docID + "/"
}

// DetailToBody は、詳細ページURLから本文表示 (view=body) のURLを導出します。
// DetailToPDF と同じセグメント判定を行い、一致しない場合は空文字列を返します。
func DetailToBody(detailBase, detailURL string) string {
	parts, ok := packSegments(detailBase, detailURL)
	if !ok {
		return ""
	}
	docID := parts[3]
	return strings.TrimRight(detailURL, "/") + "/" + docID + "?view=body"
}

// ExtractDocID は、URL末尾の空でないパスセグメントをドキュメントIDとして
// 取り出します。取り出せない場合は空文字列を返します。
func ExtractDocID(rawURL string) string {
	parts := strings.Split(strings.Trim(rawURL, "/"), "/")
	return parts[len(parts)-1]
}

// packSegments は、detailURL からベースURLを除いたパスを "/" で分解し、
// ygo/pack 配下の4セグメント以上で構成されているかを判定します。
func packSegments(detailBase, detailURL string) ([]string, bool) {
	if detailURL == "" {
		return nil, false
	}
	path := strings.Replace(detailURL, detailBase, "", 1)
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 4 && parts[0] == packSegmentYgo && parts[1] == packSegmentPack {
		return parts, true
	}
	return nil, false
}
