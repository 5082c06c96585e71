// Package downloader は、収集済みCSVを入力として回収関連文書のPDFを
// 一括ダウンロードする機能を提供します。医療機関の許可リストによる
// 絞り込みと、既存ファイルのスキップに対応します。
package downloader

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/go-pmda-docs/pkg/csvstore"
	"github.com/shouni/go-pmda-docs/pkg/hospital"
	"github.com/shouni/go-pmda-docs/pkg/listing"
	"github.com/shouni/go-pmda-docs/pkg/pmdaurl"
	"github.com/shouni/go-pmda-docs/pkg/task"
)

const (
	// サイトからのブロックを避けるためのUser-Agent
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

	// downloadTimeout は、PDF1件あたりのHTTPタイムアウトです。
	downloadTimeout = 60 * time.Second

	// copyBufferSize は、ストリーミング書き込みのバッファサイズです。
	copyBufferSize = 8192

	// fileNameMaxRunes は、ファイル名に含める販売名の最大文字数です。
	fileNameMaxRunes = 10
)

// LogFunc はログ1行を受け取る出力先です。
type LogFunc func(format string, args ...any)

// Config は、1回のダウンロード実行に渡す設定のスナップショットです。
type Config struct {
	CSVPath      string
	OutputDir    string
	UseFilter    bool
	AllowList    *hospital.AllowList // UseFilter が true の場合に必須
	SkipExisting bool
	FileWait     time.Duration // ファイル間の待機時間
}

// Tally は、ダウンロード実行の集計結果です。
type Tally struct {
	Success   int
	Failed    int
	Skipped   int
	Cancelled bool
}

// Downloader は、PDFの一括ダウンロードを管理します。
type Downloader struct {
	client *http.Client
	logf   LogFunc
}

// New は、新しいDownloaderのインスタンスを生成します。
// client が nil の場合は、ダウンロード用のタイムアウトを持つ
// デフォルトのクライアントを使用します。
func New(client *http.Client, logf LogFunc) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: downloadTimeout}
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Downloader{client: client, logf: logf}
}

// target は、ダウンロード対象1件分の情報です。
type target struct {
	record   listing.Record
	fileName string
}

// Run は、CSVを読み込み、対象行のPDFを1件ずつダウンロードします。
// キャンセルは各ファイルの処理前に検知し、それまでの集計を保持したまま
// ループを抜けます (実行の失敗ではありません)。
func (d *Downloader) Run(ctx context.Context, cfg Config) (*Tally, error) {
	if cfg.UseFilter && cfg.AllowList == nil {
		return nil, fmt.Errorf("絞り込みが有効ですが許可リストが指定されていません")
	}

	rows, err := csvstore.Read(cfg.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("入力CSVの読み込みに失敗しました: %w", err)
	}

	targets := d.selectTargets(rows, cfg)
	tally := &Tally{}
	if len(targets) == 0 {
		d.logf("ダウンロード対象がありません")
		return tally, nil
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("保存先ディレクトリの作成に失敗しました: %w", err)
	}

	d.logf("=== ダウンロード開始: 対象 %d件 ===", len(targets))
	total := len(targets)
	for i, tgt := range targets {
		// ファイル単位のキャンセルチェックポイント
		if ctx.Err() != nil {
			tally.Cancelled = true
			break
		}

		destPath := filepath.Join(cfg.OutputDir, tgt.fileName)
		if cfg.SkipExisting {
			if _, err := os.Stat(destPath); err == nil {
				d.logf("[%d/%d] スキップ (既存): %s", i+1, total, tgt.fileName)
				tally.Skipped++
				continue
			}
		}

		d.logf("[%d/%d] ダウンロード中: %s", i+1, total, tgt.fileName)
		if err := d.fetchFile(tgt.record.PDFURL, destPath); err != nil {
			d.logf("  → 失敗: %v", err)
			tally.Failed++
		} else {
			tally.Success++
		}

		// 取得を試みたファイルの後にのみ待機する
		task.Sleep(ctx, cfg.FileWait)
	}
	if ctx.Err() != nil {
		tally.Cancelled = true
	}

	d.logFinish(tally)
	return tally, nil
}

// selectTargets は、CSVの行からダウンロード対象を選別します。
// 掲載区分かつPDF URLを持ち、文書IDが導出できる行のみが対象です。
// 絞り込みが有効な場合は、さらに許可リストとの照合を行います。
func (d *Downloader) selectTargets(rows []csvstore.Row, cfg Config) []target {
	var targets []target
	for _, row := range rows {
		rec := row.ToRecord()
		if rec.Section != listing.SectionListed || rec.PDFURL == "" {
			continue
		}
		docID := pmdaurl.ExtractDocID(rec.PDFURL)
		if docID == "" {
			continue
		}
		if cfg.UseFilter && !cfg.AllowList.Match(rec.ApprovalNo, rec.CertificationNo) {
			continue
		}
		targets = append(targets, target{
			record:   rec,
			fileName: FileName(docID, rec.ProductName),
		})
	}
	return targets
}

// fetchFile は、1件のPDFをストリーミングでファイルへ保存します。
// ステータスコードが200以外の場合はエラーを返し、部分的に書き込まれた
// ファイルは削除します。キャンセルはチェックポイントでのみ判定するため、
// 送信中のリクエストは中断しません。
func (d *Downloader) fetchFile(url, destPath string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("リクエストの生成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTPエラー: %d", resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("ファイルの作成に失敗しました: %w", err)
	}

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(f, resp.Body, buf); err != nil {
		f.Close()
		os.Remove(destPath)
		return fmt.Errorf("ファイルの書き込みに失敗しました: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("ファイルのクローズに失敗しました: %w", err)
	}
	return nil
}

func (d *Downloader) logFinish(tally *Tally) {
	if tally.Cancelled {
		d.logf("=== 中断されました ===")
	} else {
		d.logf("=== ダウンロード完了 ===")
	}
	d.logf("成功: %d件 / 失敗: %d件 / スキップ: %d件",
		tally.Success, tally.Failed, tally.Skipped)
}

// fileNameReplacer は、ファイル名に使えない文字をアンダースコアへ
// 置き換えます。
var fileNameReplacer = strings.NewReplacer(
	"\\", "_", "/", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// FileName は、文書IDと販売名から保存ファイル名を組み立てます。
// 販売名は先頭10文字に切り詰めたうえで不正な文字を除去します。
// 販売名が空の場合は文書IDのみのファイル名になります。
func FileName(docID, productName string) string {
	name := strings.TrimSpace(productName)
	if name == "" {
		return docID + ".pdf"
	}
	runes := []rune(name)
	if len(runes) > fileNameMaxRunes {
		name = string(runes[:fileNameMaxRunes])
	}
	return docID + "_" + fileNameReplacer.Replace(name) + ".pdf"
}
