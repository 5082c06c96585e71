// Package config は、JSONファイルによるアプリケーション設定の読み書きと
// 検証を提供します。
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	// 待機時間の許容範囲 (秒)
	minWaitSeconds = 0.0
	maxWaitSeconds = 10.0
)

// Settings は、収集とダウンロードの両方で使う設定値を保持します。
type Settings struct {
	// 一覧ページのURLテンプレート (末尾に YYYYMMDD を連結する)
	BaseURL string `json:"base_url"`
	// 詳細ページ・PDF導出のベースURL
	DetailBaseURL string `json:"detail_base_url"`
	// 収集結果・ダウンロードの既定の出力先
	DefaultOutputDir string `json:"default_output_dir"`
	// ダウンロード1件ごとの待機時間 (秒)
	DefaultWaitTime float64 `json:"default_wait_time"`
	// 日付1件ごとの待機時間 (秒)
	ScrapeWaitTime float64 `json:"scrape_wait_time"`
	// 承認番号取得1件ごとの待機時間 (秒)
	ApprovalNumberWaitTime float64 `json:"approval_number_wait_time"`
}

// Default は、既定値の設定を返します。
func Default() *Settings {
	return &Settings{
		BaseURL:                "https://www.info.pmda.go.jp/ysearch/tenpulist.jsp?DATE=",
		DetailBaseURL:          "https://www.info.pmda.go.jp",
		DefaultOutputDir:       "./output",
		DefaultWaitTime:        0.5,
		ScrapeWaitTime:         0.3,
		ApprovalNumberWaitTime: 0.5,
	}
}

// Load は、JSONファイルから設定を読み込みます。ファイルが存在しない場合は
// 既定値を返します (エラーではありません)。存在するがパースできない場合は
// エラーです。
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}

	s := Default()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("設定ファイルのパースに失敗しました: %w", err)
	}
	return s, nil
}

// Reset は、既定値の設定をファイルへ書き戻し、その設定を返します。
func Reset(path string) (*Settings, error) {
	s := Default()
	if err := s.Save(path); err != nil {
		return nil, err
	}
	return s, nil
}

// Save は、設定をJSONファイルへ書き込みます。親ディレクトリが無ければ
// 作成します。
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("設定ディレクトリの作成に失敗しました: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("設定のシリアライズに失敗しました: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("設定ファイルの書き込みに失敗しました: %w", err)
	}
	return nil
}

// Validate は、設定値の妥当性を検証します。最初に見つかった問題を
// エラーとして返します。
func (s *Settings) Validate() error {
	if err := validateURL("base_url", s.BaseURL); err != nil {
		return err
	}
	if err := validateURL("detail_base_url", s.DetailBaseURL); err != nil {
		return err
	}
	if s.DefaultOutputDir == "" {
		return fmt.Errorf("default_output_dir が空です")
	}
	waits := []struct {
		name  string
		value float64
	}{
		{"default_wait_time", s.DefaultWaitTime},
		{"scrape_wait_time", s.ScrapeWaitTime},
		{"approval_number_wait_time", s.ApprovalNumberWaitTime},
	}
	for _, w := range waits {
		if w.value < minWaitSeconds || w.value > maxWaitSeconds {
			return fmt.Errorf("%s は %g〜%g 秒の範囲で指定してください: %g",
				w.name, minWaitSeconds, maxWaitSeconds, w.value)
		}
	}
	return nil
}

// validateURL は、URLが http/https スキームを持つことを確認します。
func validateURL(name, rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%s が空です", name)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s のパースエラー: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s は http または https のURLを指定してください: %s", name, rawURL)
	}
	return nil
}

// DownloadWait は、ダウンロード1件ごとの待機時間を返します。
func (s *Settings) DownloadWait() time.Duration {
	return secondsToDuration(s.DefaultWaitTime)
}

// DateWait は、日付1件ごとの待機時間を返します。
func (s *Settings) DateWait() time.Duration {
	return secondsToDuration(s.ScrapeWaitTime)
}

// EnrichWait は、承認番号取得1件ごとの待機時間を返します。
func (s *Settings) EnrichWait() time.Duration {
	return secondsToDuration(s.ApprovalNumberWaitTime)
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
