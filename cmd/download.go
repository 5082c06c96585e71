package cmd

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shouni/go-pmda-docs/pkg/downloader"
	"github.com/shouni/go-pmda-docs/pkg/hospital"
	"github.com/shouni/go-pmda-docs/pkg/task"
)

// download コマンドのフラグ変数
var (
	downloadCSV          string
	downloadOut          string
	downloadDeviceList   string
	downloadSkipExisting bool
)

// PDFは出力ディレクトリ配下のサブディレクトリへ保存する
const pdfSubdir = "pdf"

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "収集済みCSVを読み込み、掲載分のPDFを一括ダウンロードします",
	Long: `collect コマンドで保存したCSVを入力として、掲載区分の各行の
PDFをダウンロードします。--device-list で医療機関の採用機器リスト
(承認番号・認証番号の列を持つCSV) を指定すると、リストに一致する行のみを
対象にします。ファイルは出力先の pdf サブディレクトリへ保存されます。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		settings := GetSettings()
		outputDir := downloadOut
		if outputDir == "" {
			outputDir = settings.DefaultOutputDir
		}

		cfg := downloader.Config{
			CSVPath:      downloadCSV,
			OutputDir:    filepath.Join(outputDir, pdfSubdir),
			SkipExisting: downloadSkipExisting,
			FileWait:     settings.DownloadWait(),
		}

		if downloadDeviceList != "" {
			allow, err := hospital.Load(downloadDeviceList)
			if err != nil {
				return fmt.Errorf("採用機器リストの読み込みエラー: %w", err)
			}
			cfg.UseFilter = true
			cfg.AllowList = allow
		}

		d := downloader.New(nil, log.Printf)

		runner := task.NewRunner(nil)
		ctx, err := runner.Start(context.Background())
		if err != nil {
			return err
		}
		defer runner.Finish()
		stopWatch := watchInterrupt(runner)
		defer stopWatch()

		if _, err := d.Run(ctx, cfg); err != nil {
			return fmt.Errorf("ダウンロードの実行エラー: %w", err)
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadCSV, "csv", "", "入力CSVファイルのパス (必須)")
	downloadCmd.Flags().StringVar(&downloadOut, "out", "", "ダウンロードの出力先ディレクトリ (省略時は設定値)")
	downloadCmd.Flags().StringVar(&downloadDeviceList, "device-list", "", "絞り込み用の採用機器リストCSV")
	downloadCmd.Flags().BoolVar(&downloadSkipExisting, "skip-existing", true, "既存ファイルをスキップする")
	downloadCmd.MarkFlagRequired("csv")
}
