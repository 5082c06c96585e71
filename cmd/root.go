package cmd

import (
	"log"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"

	"github.com/shouni/go-pmda-docs/internal/config"
)

// --- グローバル定数 ---

const (
	appName           = "pmda-docs"
	defaultTimeoutSec = 30 // 一覧・詳細ページ取得のタイムアウト (秒)

	// defaultConfigPath は設定ファイルの既定の場所です。
	defaultConfigPath = "pmda_config.json"
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	TimeoutSec int    // --timeout タイムアウト
	ConfigPath string // --config 設定ファイルのパス
}

var Flags AppFlags // アプリケーション固有フラグにアクセスするためのグローバル変数

var (
	globalFetcher  httpkit.Fetcher
	globalSettings *config.Settings
)

// --- 初期化とロジック (clibaseへのコールバックとして利用) ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().IntVar(
		&Flags.TimeoutSec,
		"timeout",
		defaultTimeoutSec,
		"HTTPリクエストのタイムアウト時間（秒）",
	)
	rootCmd.PersistentFlags().StringVar(
		&Flags.ConfigPath,
		"config",
		defaultConfigPath,
		"設定ファイルのパス",
	)
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibaseの PersistentPreRunE チェーンにより、clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	// reset は壊れた設定ファイルの復旧にも使うため、読み込みを行わない
	if cmd.Name() == "reset" {
		globalSettings = config.Default()
		return nil
	}

	settings, err := config.Load(Flags.ConfigPath)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	globalSettings = settings

	timeout := time.Duration(Flags.TimeoutSec) * time.Second
	if clibase.Flags.Verbose {
		log.Printf("設定ファイル: %s", Flags.ConfigPath)
		log.Printf("HTTPクライアントのタイムアウトを設定しました (Timeout: %s)。", timeout)
	}

	// 対象サーバーへの負荷を抑えるため、リトライは行わない (1回のみの試行)
	globalFetcher = httpkit.New(
		timeout,
		httpkit.WithMaxRetries(0),
	)

	return nil
}

// GetGlobalFetcher は、初期化されたフェッチャーを返す関数 (DIの代わり)
func GetGlobalFetcher() httpkit.Fetcher {
	return globalFetcher
}

// GetSettings は、読み込み済みの設定を返します。
func GetSettings() *config.Settings {
	return globalSettings
}

// --- エントリポイント ---

// Execute は、rootCmd を実行するメイン関数です。clibaseのExecuteを使用する。
func Execute() {
	clibase.Execute(
		appName,
		addAppPersistentFlags, // カスタムフラグの追加コールバック
		initAppPreRunE,        // カスタムPersistentPreRunEコールバック
		collectCmd,
		downloadCmd,
		configCmd,
	)
}
