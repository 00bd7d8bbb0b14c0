package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corey/aptlookup/internal/adapters/bbolt"
	"github.com/corey/aptlookup/internal/adapters/htmltable"
	"github.com/corey/aptlookup/internal/adapters/postgres"
	"github.com/corey/aptlookup/internal/adapters/sheet"
	"github.com/corey/aptlookup/internal/adapters/xlsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"APTLOOKUP_SOURCE", "APTLOOKUP_SOURCE_URL", "APTLOOKUP_SOURCE_PATH",
	"APTLOOKUP_SHEET", "APTLOOKUP_SELECTOR", "APTLOOKUP_PG_DSN", "APTLOOKUP_TABLE",
	"APTLOOKUP_TIMEOUT", "APTLOOKUP_SORT_LOCALE", "APTLOOKUP_HTTP_PORT", "APTLOOKUP_WATCH",
}

// clearEnv unsets every APTLOOKUP_* variable for the test, restoring them after.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, KindBolt, cfg.Source)
	assert.Equal(t, DefaultTable, cfg.Table)
	assert.True(t, cfg.Watch)
	assert.Equal(t, filepath.Join(root, ".aptlookup", "aptlookup.db"), cfg.ResolvedPath())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	fileCfg := &Config{Source: KindXLSX, Path: "data/buildings.xlsx", Sheet: "Seoul", Watch: true}
	require.NoError(t, fileCfg.Save(filepath.Join(root, ".aptlookup", "config.json")))

	t.Setenv("APTLOOKUP_SHEET", "Busan")
	t.Setenv("APTLOOKUP_WATCH", "false")

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, KindXLSX, cfg.Source)
	assert.Equal(t, "Busan", cfg.Sheet)
	assert.False(t, cfg.Watch)
	assert.Equal(t, filepath.Join(root, "data", "buildings.xlsx"), cfg.ResolvedPath())
	assert.Empty(t, cfg.WatchPath())
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	dotenv := "# project settings\n" +
		"APTLOOKUP_SOURCE=sheet\n" +
		"export APTLOOKUP_SOURCE_URL=\"https://example.com/exec\"\n" +
		"APTLOOKUP_SORT_LOCALE='ko'\n" +
		"not a pair\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(dotenv), 0644))
	t.Setenv("APTLOOKUP_SORT_LOCALE", "en")

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, KindSheet, cfg.Source)
	assert.Equal(t, "https://example.com/exec", cfg.URL)
	assert.Equal(t, "en", cfg.SortLocale)
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	err := Default("").LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.json")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"sheet ok", Config{Source: KindSheet, URL: "https://script.example.com/exec"}, ""},
		{"sheet missing url", Config{Source: KindSheet}, "needs a url"},
		{"sheet bad scheme", Config{Source: KindSheet, URL: "ftp://x/y"}, "not an http(s) url"},
		{"html ok", Config{Source: KindHTML, URL: "http://localhost/pub"}, ""},
		{"file missing path", Config{Source: KindFile}, "needs a path"},
		{"xlsx ok", Config{Source: KindXLSX, Path: "b.xlsx"}, ""},
		{"postgres missing dsn", Config{Source: KindPostgres, Table: "t"}, "needs a dsn"},
		{"postgres missing table", Config{Source: KindPostgres, DSN: "host=x"}, "needs a table"},
		{"bolt missing table", Config{Source: KindBolt}, "needs a table"},
		{"no source", Config{}, "no source"},
		{"unknown", Config{Source: "csv"}, "unknown source"},
		{"port", Config{Source: KindBolt, Table: "t", HTTPPort: 70000}, "out of range"},
		{"port off", Config{Source: KindBolt, Table: "t", HTTPPort: -1}, ""},
		{"timeout", Config{Source: KindBolt, Table: "t", TimeoutSeconds: -5}, "negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestBuildSource_Kinds(t *testing.T) {
	root := t.TempDir()

	cfg := Default(root)
	cfg.Source, cfg.URL, cfg.TimeoutSeconds = KindSheet, "https://example.com/exec", 3
	src, err := cfg.BuildSource()
	require.NoError(t, err)
	sh, ok := src.(*sheet.HTTPSource)
	require.True(t, ok)
	assert.Equal(t, float64(3), sh.Client.Timeout.Seconds())

	cfg = Default(root)
	cfg.Source, cfg.Path = KindFile, "rows.json"
	src, err = cfg.BuildSource()
	require.NoError(t, err)
	require.IsType(t, &sheet.FileSource{}, src)
	assert.Equal(t, filepath.Join(root, "rows.json"), src.(*sheet.FileSource).Path)

	cfg = Default(root)
	cfg.Source, cfg.Path, cfg.Sheet = KindXLSX, "/abs/b.xlsx", "Seoul"
	src, err = cfg.BuildSource()
	require.NoError(t, err)
	assert.Equal(t, &xlsx.Source{Path: "/abs/b.xlsx", Sheet: "Seoul"}, src)

	cfg = Default(root)
	cfg.Source, cfg.URL = KindHTML, "https://docs.example.com/pubhtml"
	src, err = cfg.BuildSource()
	require.NoError(t, err)
	require.IsType(t, &htmltable.Source{}, src)
	assert.Equal(t, htmltable.DefaultSelector, src.(*htmltable.Source).Selector)

	cfg = Default(root)
	cfg.Source, cfg.DSN = KindPostgres, "host=db user=u password=secret"
	src, err = cfg.BuildSource()
	require.NoError(t, err)
	require.IsType(t, &postgres.Source{}, src)
	assert.NotContains(t, src.Describe(), "secret")

	src, err = Default(root).BuildSource()
	require.NoError(t, err)
	require.IsType(t, &bbolt.Source{}, src)
	assert.Equal(t, filepath.Join(root, ".aptlookup", "aptlookup.db"), src.(*bbolt.Source).Path)
}

func TestBuildSource_Invalid(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Source = KindSheet
	_, err := cfg.BuildSource()
	assert.Error(t, err)
}

func TestWatchPath(t *testing.T) {
	root := t.TempDir()

	cfg := Default(root)
	assert.Equal(t, filepath.Join(root, ".aptlookup", "aptlookup.db"), cfg.WatchPath())

	cfg.Source, cfg.URL = KindSheet, "https://example.com/exec"
	assert.Empty(t, cfg.WatchPath())

	cfg.Source, cfg.Path = KindFile, "rows.json"
	assert.Equal(t, filepath.Join(root, "rows.json"), cfg.WatchPath())
}

func TestAppConfig(t *testing.T) {
	root := t.TempDir()
	cfg := Default(root)
	cfg.SortLocale, cfg.HTTPPort = "ko", -1

	ac, err := cfg.AppConfig()
	require.NoError(t, err)
	assert.Equal(t, root, ac.ProjectRoot)
	assert.Equal(t, "ko", ac.SortLocale)
	assert.Equal(t, -1, ac.HTTPPort)
	assert.Equal(t, cfg.WatchPath(), ac.WatchPath)
	require.NotNil(t, ac.Source)
}

func TestRedacted(t *testing.T) {
	cfg := &Config{Source: KindPostgres, DSN: "postgres://u:secret@h/db"}
	r := cfg.Redacted()
	assert.NotContains(t, r.DSN, "secret")
	assert.Equal(t, "postgres://u:secret@h/db", cfg.DSN)

	assert.Empty(t, (&Config{}).Redacted().DSN)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("APTLOOKUP_TEST_STR", "x")
	t.Setenv("APTLOOKUP_TEST_INT", "42")
	t.Setenv("APTLOOKUP_TEST_BADINT", "forty")
	t.Setenv("APTLOOKUP_TEST_BOOL", "yes")

	assert.Equal(t, "x", GetEnv("APTLOOKUP_TEST_STR", "d"))
	assert.Equal(t, "d", GetEnv("APTLOOKUP_TEST_UNSET", "d"))
	assert.Equal(t, 42, GetEnvInt("APTLOOKUP_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("APTLOOKUP_TEST_BADINT", 1))
	assert.True(t, GetEnvBool("APTLOOKUP_TEST_BOOL", false))
	assert.True(t, GetEnvBool("APTLOOKUP_TEST_UNSET", true))
}
