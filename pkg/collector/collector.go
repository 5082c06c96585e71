package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shouni/go-pmda-docs/pkg/csvstore"
	"github.com/shouni/go-pmda-docs/pkg/listing"
	"github.com/shouni/go-pmda-docs/pkg/task"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// Lister は、日付1件分の一覧を取得する機能のインターフェースを定義します。
// Collector は、この抽象に依存します。
type Lister interface {
	ScrapeDate(ctx context.Context, dateStr string, fetchNumbers bool) []listing.Record
}

// LogFunc はログ1行を受け取る出力先です。
type LogFunc func(format string, args ...any)

// ConfirmFunc は、中断時に部分結果を保存するかを呼び出し元へ確認します。
type ConfirmFunc func(count int) bool

// Config は、1回の収集実行に渡す設定のスナップショットです。
// 実行中に設定ストアが書き換えられても実行には影響しません。
type Config struct {
	Start        time.Time
	End          time.Time // Start 以上であること (呼び出し元で検証)
	FetchNumbers bool
	OutputDir    string
	DateWait     time.Duration // 日付間の待機時間
}

// Result は収集実行の結果です。
type Result struct {
	Records   []listing.Record
	CSVPath   string // 保存された場合のみ設定
	Cancelled bool
}

// Collector は、日付範囲の収集とCSVへの保存を管理します。
type Collector struct {
	lister      Lister
	logf        LogFunc
	confirmSave ConfirmFunc
}

// New は、新しいCollectorのインスタンスを生成します。
// confirmSave が nil の場合、中断時の部分結果は無条件で保存されます。
func New(lister Lister, logf LogFunc, confirmSave ConfirmFunc) (*Collector, error) {
	if lister == nil {
		return nil, fmt.Errorf("collector.New: Lister cannot be nil")
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Collector{
		lister:      lister,
		logf:        logf,
		confirmSave: confirmSave,
	}, nil
}

// Run は、日付範囲を古い順に1日ずつ収集し、結果をCSVへ保存します。
// キャンセルは各日付の処理前に検知し、それまでに蓄積した結果を保持したまま
// ループを抜けます (実行の失敗ではありません)。中断時の保存は confirmSave の
// 確認結果に従います。
func (c *Collector) Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Start.After(cfg.End) {
		return nil, fmt.Errorf("開始日が終了日より後になっています")
	}

	dates := dateRange(cfg.Start, cfg.End)
	c.logStart(cfg, len(dates))

	res := &Result{}
	total := len(dates)
	for i, dateStr := range dates {
		// 日付単位のキャンセルチェックポイント
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		c.logf("[%d/%d] %s 収集中...", i+1, total, dateStr)
		records := c.lister.ScrapeDate(ctx, dateStr, cfg.FetchNumbers)
		res.Records = append(res.Records, records...)
		c.logf("  → %d件取得", len(records))

		task.Sleep(ctx, cfg.DateWait)
	}
	if ctx.Err() != nil {
		res.Cancelled = true
	}

	return c.finish(res, cfg)
}

// finish は、収集結果のログ出力と保存を行います。
func (c *Collector) finish(res *Result, cfg Config) (*Result, error) {
	if res.Cancelled {
		c.logf("=== 中断されました ===")
		if len(res.Records) == 0 {
			return res, nil
		}
		c.logf("中断までに %d件 取得しました", len(res.Records))
		if c.confirmSave != nil && !c.confirmSave(len(res.Records)) {
			return res, nil
		}
	} else {
		c.logf("=== 収集完了: 合計 %d件 ===", len(res.Records))
		if len(res.Records) == 0 {
			return res, nil
		}
	}

	path, err := csvstore.Write(cfg.OutputDir, res.Records, time.Now())
	if err != nil {
		return res, fmt.Errorf("収集結果の保存に失敗しました: %w", err)
	}
	c.logf("保存完了: %s", path)
	res.CSVPath = path
	return res, nil
}

func (c *Collector) logStart(cfg Config, days int) {
	const layout = "2006-01-02"
	c.logf("=== 収集開始 ===")
	if cfg.Start.Equal(cfg.End) {
		c.logf("日付: %s", cfg.Start.Format(layout))
	} else {
		c.logf("期間: %s ~ %s", cfg.Start.Format(layout), cfg.End.Format(layout))
		c.logf("対象日数: %d日", days)
	}
	if cfg.FetchNumbers {
		c.logf("※承認番号・認証番号も取得します（時間がかかります）")
	}
}

// dateRange は、start から end までの日付 (ISO形式) を1日刻みで列挙します。
func dateRange(start, end time.Time) []string {
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates
}
