package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Modules       []ModuleEntry `toml:"modules"`
	Discovery     Discovery     `toml:"discovery"`
	Exclude       Exclude       `toml:"exclude"`
	Watch         Watch         `toml:"watch"`
	References    References    `toml:"references"`
	DB            Database      `toml:"db"`
	Observability Observability `toml:"observability"`
	Output        Output        `toml:"output"`
	Caches        Caches        `toml:"caches"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	StateDir    string `toml:"state_dir"`
	DatabaseDir string `toml:"database_dir"`
}

// ModuleEntry declares one module of the workspace. Paths are relative to
// the project root unless absolute.
type ModuleEntry struct {
	Name         string            `toml:"name"`
	SourceRoots  []SourceRootEntry `toml:"source_roots"`
	LibraryRoots []string          `toml:"library_roots"`
	Dependencies []string          `toml:"dependencies"`
}

type SourceRootEntry struct {
	Path          string `toml:"path"`
	PackagePrefix string `toml:"package_prefix"`
}

type Discovery struct {
	GoModules bool     `toml:"go_modules"`
	Roots     []string `toml:"roots"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type References struct {
	Soft             *bool    `toml:"soft"`
	IncludeLibraries *bool    `toml:"include_libraries"`
	Languages        []string `toml:"languages"`
}

type Database struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Project string `toml:"project"`
}

type Observability struct {
	Enabled      bool    `toml:"enabled"`
	Address      string  `toml:"address"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	RateLimit    float64 `toml:"rate_limit"`
	Burst        int     `toml:"burst"`
	// TrustedProxies are addresses or CIDR ranges whose X-Forwarded-For
	// header names the real client for rate limiting.
	TrustedProxies []string `toml:"trusted_proxies"`
}

type Output struct {
	TSV   string `toml:"tsv"`
	SARIF string `toml:"sarif"`
	JSON  string `toml:"json"`
}

type Caches struct {
	Literals int `toml:"literals"`
	Archives int `toml:"archives"`
}

// IsSoft reports whether unresolved references are soft (no diagnostics).
func (r References) IsSoft() bool {
	return r.Soft == nil || *r.Soft
}

// WithLibraries reports whether library roots join the default contexts.
func (r References) WithLibraries() bool {
	return r.IncludeLibraries == nil || *r.IncludeLibraries
}

// DefaultConfig returns a config with every default applied and no modules.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is a single
// host prefix.
func (o Observability) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(o.TrustedProxies))
	for _, raw := range o.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
