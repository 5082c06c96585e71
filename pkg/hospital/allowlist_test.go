package hospital_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/shouni/go-pmda-docs/pkg/hospital"
)

func writeListFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devices.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("both_columns", func(t *testing.T) {
		path := writeListFile(t, "機器名,承認番号,認証番号\nデバイスA,A100,\nデバイスB, A200 ,C300\nデバイスC,,\n")

		list, err := hospital.Load(path)
		require.NoError(t, err)

		// 値はトリムされ、空値は集合に入らない
		assert.Equal(t, map[string]struct{}{"A100": {}, "A200": {}}, list.Approvals)
		assert.Equal(t, map[string]struct{}{"C300": {}}, list.Certifications)
	})

	t.Run("column_matched_by_substring", func(t *testing.T) {
		path := writeListFile(t, "医療機器承認番号(本体),機器認証番号\nA100,C200\n")

		list, err := hospital.Load(path)
		require.NoError(t, err)
		assert.Contains(t, list.Approvals, "A100")
		assert.Contains(t, list.Certifications, "C200")
	})

	t.Run("first_matching_column_wins", func(t *testing.T) {
		path := writeListFile(t, "承認番号,旧承認番号\nA100,A999\n")

		list, err := hospital.Load(path)
		require.NoError(t, err)
		assert.Contains(t, list.Approvals, "A100")
		assert.NotContains(t, list.Approvals, "A999")
	})

	t.Run("neither_column_yields_empty_sets", func(t *testing.T) {
		path := writeListFile(t, "機器名,メーカー\nデバイスA,ACME\n")

		list, err := hospital.Load(path)
		require.NoError(t, err)
		assert.Empty(t, list.Approvals)
		assert.Empty(t, list.Certifications)
	})

	t.Run("utf8_bom_stripped", func(t *testing.T) {
		path := writeListFile(t, "\xEF\xBB\xBF承認番号\nA100\n")

		list, err := hospital.Load(path)
		require.NoError(t, err)
		assert.Contains(t, list.Approvals, "A100")
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := hospital.Load(filepath.Join(t.TempDir(), "no_such.csv"))
		assert.Error(t, err)
	})
}

// TestLoadShiftJIS は、Excelからエクスポートされた Shift_JIS のリストも
// 読み込めることを確認します。
func TestLoadShiftJIS(t *testing.T) {
	content := "機器名,承認番号,認証番号\n心電計,A100,C200\n"
	encoded, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(content))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "devices_sjis.csv")
	require.NoError(t, os.WriteFile(path, encoded, 0644))

	list, err := hospital.Load(path)
	require.NoError(t, err)
	assert.Contains(t, list.Approvals, "A100")
	assert.Contains(t, list.Certifications, "C200")
}

// TestLoadIdempotent は、同じファイルを複数回読み込んでも同一の集合が
// 得られることを確認します。
func TestLoadIdempotent(t *testing.T) {
	path := writeListFile(t, "承認番号,認証番号\nA100,C200\nA300,\n")

	first, err := hospital.Load(path)
	require.NoError(t, err)
	second, err := hospital.Load(path)
	require.NoError(t, err)

	assert.Equal(t, first.Approvals, second.Approvals)
	assert.Equal(t, first.Certifications, second.Certifications)
}

func TestMatch(t *testing.T) {
	list := &hospital.AllowList{
		Approvals:      map[string]struct{}{"A100": {}},
		Certifications: map[string]struct{}{"C200": {}},
	}

	testCases := []struct {
		name               string
		approvalNo, certNo string
		expected           bool
	}{
		{"approval_match", "A100", "", true},
		{"certification_match", "", "C200", true},
		{"either_match_is_enough", "A999", "C200", true},
		{"no_match", "A999", "C999", false},
		{"empty_numbers_never_match", "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, list.Match(tc.approvalNo, tc.certNo))
		})
	}
}
