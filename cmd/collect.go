package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-pmda-docs/pkg/collector"
	"github.com/shouni/go-pmda-docs/pkg/listing"
	"github.com/shouni/go-pmda-docs/pkg/task"
)

// collect コマンドのフラグ変数
var (
	collectDate         string
	collectFrom         string
	collectTo           string
	collectFetchNumbers bool
	collectOut          string
	collectYes          bool
)

const dateLayout = "2006-01-02"

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "回収情報の一覧ページを日付範囲で収集し、CSVへ保存します",
	Long: `指定された日付範囲の一覧ページを1日ずつ取得し、掲載分・削除分の
各行をCSVファイルへ保存します。--fetch-numbers を指定すると、掲載分の
各行について詳細ページから承認番号・認証番号も取得します（時間がかかります）。
Ctrl+C で中断した場合、それまでの収集結果を保存するか確認します。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := resolveDateRange(collectDate, collectFrom, collectTo)
		if err != nil {
			return err
		}

		settings := GetSettings()
		outputDir := collectOut
		if outputDir == "" {
			outputDir = settings.DefaultOutputDir
		}

		fetcher := GetGlobalFetcher()
		if fetcher == nil {
			return fmt.Errorf("HTTPクライアントの取得に失敗しました")
		}

		scraper, err := listing.NewScraper(fetcher, listing.Config{
			BaseURL:       settings.BaseURL,
			DetailBaseURL: settings.DetailBaseURL,
			EnrichWait:    settings.EnrichWait(),
		}, log.Printf)
		if err != nil {
			return fmt.Errorf("スクレイパーの初期化エラー: %w", err)
		}

		var confirm collector.ConfirmFunc
		if !collectYes {
			confirm = confirmSaveOnStdin
		}

		c, err := collector.New(scraper, log.Printf, confirm)
		if err != nil {
			return fmt.Errorf("コレクターの初期化エラー: %w", err)
		}

		runner := task.NewRunner(nil)
		ctx, err := runner.Start(context.Background())
		if err != nil {
			return err
		}
		defer runner.Finish()
		stopWatch := watchInterrupt(runner)
		defer stopWatch()

		if _, err := c.Run(ctx, collector.Config{
			Start:        start,
			End:          end,
			FetchNumbers: collectFetchNumbers,
			OutputDir:    outputDir,
			DateWait:     settings.DateWait(),
		}); err != nil {
			return fmt.Errorf("収集の実行エラー: %w", err)
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectDate, "date", "", "収集する日付 (YYYY-MM-DD、単日指定)")
	collectCmd.Flags().StringVar(&collectFrom, "from", "", "収集範囲の開始日 (YYYY-MM-DD)")
	collectCmd.Flags().StringVar(&collectTo, "to", "", "収集範囲の終了日 (YYYY-MM-DD)")
	collectCmd.Flags().BoolVar(&collectFetchNumbers, "fetch-numbers", false, "詳細ページから承認番号・認証番号も取得する")
	collectCmd.Flags().StringVar(&collectOut, "out", "", "CSVの出力先ディレクトリ (省略時は設定値)")
	collectCmd.Flags().BoolVarP(&collectYes, "yes", "y", false, "中断時の保存確認をスキップして常に保存する")
}

// resolveDateRange は、--date または --from/--to の指定から日付範囲を
// 決定します。--date と --from/--to の併用はエラーです。
func resolveDateRange(date, from, to string) (time.Time, time.Time, error) {
	var zero time.Time

	if date != "" {
		if from != "" || to != "" {
			return zero, zero, fmt.Errorf("--date と --from/--to は同時に指定できません")
		}
		d, err := time.ParseInLocation(dateLayout, date, time.Local)
		if err != nil {
			return zero, zero, fmt.Errorf("日付の形式が不正です (YYYY-MM-DD): %s", date)
		}
		return d, d, nil
	}

	if from == "" || to == "" {
		return zero, zero, fmt.Errorf("--date または --from と --to を指定してください")
	}
	start, err := time.ParseInLocation(dateLayout, from, time.Local)
	if err != nil {
		return zero, zero, fmt.Errorf("開始日の形式が不正です (YYYY-MM-DD): %s", from)
	}
	end, err := time.ParseInLocation(dateLayout, to, time.Local)
	if err != nil {
		return zero, zero, fmt.Errorf("終了日の形式が不正です (YYYY-MM-DD): %s", to)
	}
	if start.After(end) {
		return zero, zero, fmt.Errorf("開始日が終了日より後になっています: %s > %s", from, to)
	}
	return start, end, nil
}

// confirmSaveOnStdin は、中断時に部分結果を保存するかを標準入力で確認します。
func confirmSaveOnStdin(count int) bool {
	fmt.Printf("中断までの %d件 を保存しますか? [y/N]: ", count)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

// watchInterrupt は、Ctrl+C (SIGINT) を受けたらキャンセルを要求する
// 監視ゴルーチンを起動します。戻り値の関数で監視を停止します。
func watchInterrupt(runner *task.Runner) func() {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigCh, os.Interrupt)

	go func() {
		select {
		case <-sigCh:
			log.Printf("中断要求を受け付けました。チェックポイントで停止します...")
			runner.Cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
