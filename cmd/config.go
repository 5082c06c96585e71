package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shouni/go-pmda-docs/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "設定ファイルの表示・初期化を行います",
	Long: `現在の設定を表示 (show)、または設定ファイルを既定値で書き戻します
(reset)。設定ファイルの場所は --config で変更できます。`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "現在の設定を表示します",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(GetSettings(), "", "  ")
		if err != nil {
			return fmt.Errorf("設定のシリアライズに失敗しました: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "設定ファイルを既定値で書き戻します",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Reset(Flags.ConfigPath); err != nil {
			return fmt.Errorf("設定のリセットに失敗しました: %w", err)
		}
		fmt.Printf("設定を既定値に戻しました: %s\n", Flags.ConfigPath)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configResetCmd)
}
