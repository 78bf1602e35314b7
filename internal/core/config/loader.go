package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"pathref/internal/core/errors"

	"github.com/BurntSushi/toml"
)

const currentVersion = 1

var defaultLanguages = []string{"go", "python", "java", "javascript", "typescript", "tsx", "rust", "html", "css"}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Parse decodes TOML content and applies defaults, normalization and
// validation in the same order as Load.
func Parse(content string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode config")
	}

	applyDefaults(&cfg)
	normalizeModules(&cfg)
	normalizeReferences(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateModules(&cfg); err != nil {
		return nil, err
	}
	if err := validateReferences(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = currentVersion
	}

	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = "data/state"
	}
	if strings.TrimSpace(cfg.Paths.DatabaseDir) == "" {
		cfg.Paths.DatabaseDir = "data/database"
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "pathref.db"
	}
	if strings.TrimSpace(cfg.DB.Project) == "" {
		cfg.DB.Project = "default"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", "node_modules", "vendor", "target", "build"}
	}

	if len(cfg.References.Languages) == 0 {
		cfg.References.Languages = append([]string(nil), defaultLanguages...)
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
	if cfg.Observability.RateLimit == 0 {
		cfg.Observability.RateLimit = 20
	}
	if cfg.Observability.Burst == 0 {
		cfg.Observability.Burst = 40
	}

	if cfg.Caches.Literals <= 0 {
		cfg.Caches.Literals = 2048
	}
	if cfg.Caches.Archives <= 0 {
		cfg.Caches.Archives = 32
	}
}

func normalizeModules(cfg *Config) {
	for i := range cfg.Modules {
		entry := &cfg.Modules[i]
		entry.Name = strings.TrimSpace(entry.Name)
		for j := range entry.SourceRoots {
			root := &entry.SourceRoots[j]
			root.Path = strings.TrimSpace(root.Path)
			root.PackagePrefix = strings.Trim(strings.TrimSpace(root.PackagePrefix), ".")
		}
		entry.LibraryRoots = trimNonEmpty(entry.LibraryRoots)
		entry.Dependencies = trimNonEmpty(entry.Dependencies)
	}
	cfg.Discovery.Roots = trimNonEmpty(cfg.Discovery.Roots)
}

func normalizeReferences(cfg *Config) {
	langs := make([]string, 0, len(cfg.References.Languages))
	for _, lang := range cfg.References.Languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		langs = append(langs, lang)
	}
	cfg.References.Languages = langs
}

func trimNonEmpty(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 || cfg.Version > currentVersion {
		return errors.Newf(errors.CodeValidationError, "unsupported config version %d; supported version is %d", cfg.Version, currentVersion)
	}
	return nil
}

func validateModules(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Modules))
	for i, entry := range cfg.Modules {
		ref := fmt.Sprintf("modules[%d]", i)
		if entry.Name == "" {
			return errors.Newf(errors.CodeValidationError, "%s.name must not be empty", ref)
		}
		if seen[entry.Name] {
			return errors.AddContext(errors.Newf(errors.CodeConflict, "duplicate module name %q", entry.Name), errors.CtxModule, entry.Name)
		}
		seen[entry.Name] = true
		for j, root := range entry.SourceRoots {
			if root.Path == "" {
				return errors.Newf(errors.CodeValidationError, "%s.source_roots[%d].path must not be empty", ref, j)
			}
			if strings.Contains(root.PackagePrefix, "..") {
				return errors.Newf(errors.CodeValidationError, "%s.source_roots[%d].package_prefix %q has an empty component", ref, j, root.PackagePrefix)
			}
		}
	}

	for _, entry := range cfg.Modules {
		for _, dep := range entry.Dependencies {
			if !seen[dep] {
				err := errors.Newf(errors.CodeValidationError, "module %q depends on unknown module %q", entry.Name, dep)
				return errors.AddContext(err, errors.CtxModule, entry.Name)
			}
		}
	}
	return nil
}

func validateReferences(cfg *Config) error {
	known := make(map[string]bool, len(defaultLanguages))
	for _, lang := range defaultLanguages {
		known[lang] = true
	}
	for _, lang := range cfg.References.Languages {
		if !known[lang] {
			return errors.AddContext(
				errors.Newf(errors.CodeNotSupported, "references.languages contains unsupported language %q", lang),
				errors.CtxLanguage, lang,
			)
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.RateLimit < 0 {
		return errors.New(errors.CodeValidationError, "observability.rate_limit must be >= 0")
	}
	if cfg.Observability.Burst < 0 {
		return errors.New(errors.CodeValidationError, "observability.burst must be >= 0")
	}
	if _, err := cfg.Observability.TrustedProxyPrefixes(); err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "observability.trusted_proxies")
	}
	return nil
}
