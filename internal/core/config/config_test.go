package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pathref/internal/core/errors"
)

func TestLoad(t *testing.T) {
	content := `
version = 1

[paths]
state_dir = "state"

[[modules]]
name = "app"
dependencies = ["core"]
library_roots = ["third_party/lib", "jar:///opt/lib/rt.jar!/"]

[[modules.source_roots]]
path = "app/src"
package_prefix = "com.example.app."

[[modules]]
name = "core"

[[modules.source_roots]]
path = "core/src"

[exclude]
dirs = [".git"]
files = ["*.log"]

[watch]
debounce = "1s"

[references]
soft = false
languages = ["Go", " python "]

[output]
tsv = "refs.tsv"
sarif = "refs.sarif"
`
	path := filepath.Join(t.TempDir(), "pathref.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Modules) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(cfg.Modules))
	}
	app := cfg.Modules[0]
	if app.Name != "app" || len(app.SourceRoots) != 1 {
		t.Fatalf("unexpected app module: %+v", app)
	}
	if app.SourceRoots[0].PackagePrefix != "com.example.app" {
		t.Errorf("expected trimmed package prefix, got %q", app.SourceRoots[0].PackagePrefix)
	}
	if len(app.LibraryRoots) != 2 {
		t.Errorf("expected 2 library roots, got %v", app.LibraryRoots)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if cfg.References.IsSoft() {
		t.Error("expected soft=false to be honoured")
	}
	if !cfg.References.WithLibraries() {
		t.Error("expected include_libraries to default to true")
	}
	if got := cfg.References.Languages; len(got) != 2 || got[0] != "go" || got[1] != "python" {
		t.Errorf("expected normalized languages [go python], got %v", got)
	}
	if cfg.Paths.StateDir != "state" {
		t.Errorf("expected state dir override, got %q", cfg.Paths.StateDir)
	}
	if cfg.Paths.DatabaseDir != "data/database" {
		t.Errorf("expected default database dir, got %q", cfg.Paths.DatabaseDir)
	}
	if cfg.Output.TSV != "refs.tsv" || cfg.Output.SARIF != "refs.sarif" {
		t.Errorf("unexpected output config: %+v", cfg.Output)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Version != currentVersion {
		t.Errorf("expected version %d, got %d", currentVersion, cfg.Version)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected 500ms debounce, got %v", cfg.Watch.Debounce)
	}
	if cfg.Observability.Address != "127.0.0.1:9464" {
		t.Errorf("unexpected address %q", cfg.Observability.Address)
	}
	if cfg.Caches.Literals != 2048 || cfg.Caches.Archives != 32 {
		t.Errorf("unexpected cache sizes: %+v", cfg.Caches)
	}
	if !cfg.References.IsSoft() {
		t.Error("expected references to be soft by default")
	}
	if len(cfg.References.Languages) != len(defaultLanguages) {
		t.Errorf("expected all languages enabled, got %v", cfg.References.Languages)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{
			name:    "unsupported version",
			content: "version = 7\n",
			code:    errors.CodeValidationError,
		},
		{
			name: "empty module name",
			content: `
[[modules]]
name = " "
`,
			code: errors.CodeValidationError,
		},
		{
			name: "duplicate module",
			content: `
[[modules]]
name = "a"
[[modules]]
name = "a"
`,
			code: errors.CodeConflict,
		},
		{
			name: "unknown dependency",
			content: `
[[modules]]
name = "a"
dependencies = ["ghost"]
`,
			code: errors.CodeValidationError,
		},
		{
			name: "empty source root",
			content: `
[[modules]]
name = "a"
[[modules.source_roots]]
path = ""
`,
			code: errors.CodeValidationError,
		},
		{
			name: "empty prefix component",
			content: `
[[modules]]
name = "a"
[[modules.source_roots]]
path = "src"
package_prefix = "com..example"
`,
			code: errors.CodeValidationError,
		},
		{
			name: "unsupported language",
			content: `
[references]
languages = ["cobol"]
`,
			code: errors.CodeNotSupported,
		},
		{
			name: "negative burst",
			content: `
[observability]
burst = -1
`,
			code: errors.CodeValidationError,
		},
		{
			name: "bad trusted proxy",
			content: `
[observability]
trusted_proxies = ["10.0.0.0/33"]
`,
			code: errors.CodeValidationError,
		},
		{
			name:    "malformed toml",
			content: "[[modules]\n",
			code:    errors.CodeValidationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCode(err, tt.code) {
				t.Fatalf("expected code %s, got %v", tt.code, err)
			}
		})
	}
}

func TestTrustedProxyPrefixes(t *testing.T) {
	o := Observability{TrustedProxies: []string{"10.1.2.3", " 192.168.0.7/16 ", "", "::1"}}
	got, err := o.TrustedProxyPrefixes()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"10.1.2.3/32", "192.168.0.0/16", "::1/128"}
	if len(got) != len(want) {
		t.Fatalf("expected %d prefixes, got %v", len(want), got)
	}
	for i, p := range got {
		if p.String() != want[i] {
			t.Errorf("prefix %d = %s, want %s", i, p, want[i])
		}
	}

	if _, err := (Observability{TrustedProxies: []string{"proxy.local"}}).TrustedProxyPrefixes(); err == nil {
		t.Error("expected error for a host name")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PATHREF_DB_ENABLED", "true")
	t.Setenv("PATHREF_DB_PATH", "/tmp/override.db")
	t.Setenv("PATHREF_WATCH_DEBOUNCE", "2s")
	t.Setenv("PATHREF_OBSERVABILITY_BURST", "7")
	t.Setenv("PATHREF_OBSERVABILITY_RATE_LIMIT", "1.5")
	t.Setenv("PATHREF_REFERENCES_SOFT", "false")
	t.Setenv("PATHREF_OBSERVABILITY_ADDRESS", "")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	if !cfg.DB.Enabled {
		t.Error("expected db enabled")
	}
	if cfg.DB.Path != "/tmp/override.db" {
		t.Errorf("unexpected db path %q", cfg.DB.Path)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("unexpected debounce %v", cfg.Watch.Debounce)
	}
	if cfg.Observability.Burst != 7 || cfg.Observability.RateLimit != 1.5 {
		t.Errorf("unexpected observability %+v", cfg.Observability)
	}
	if cfg.References.IsSoft() {
		t.Error("expected soft override to false")
	}
	if cfg.Observability.Address != "" {
		t.Errorf("expected empty address override, got %q", cfg.Observability.Address)
	}
}

func TestApplyEnvOverridesIgnoresMalformed(t *testing.T) {
	t.Setenv("PATHREF_OBSERVABILITY_BURST", "many")
	t.Setenv("PATHREF_WATCH_DEBOUNCE", "soon")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	if cfg.Observability.Burst != 40 {
		t.Errorf("expected default burst, got %d", cfg.Observability.Burst)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected default debounce, got %v", cfg.Watch.Debounce)
	}
}
