package rss

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Preset is a named feed.
type Preset struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// PathRule blocks URLs whose host ends with Host and whose path contains Fragment.
type PathRule struct {
	Host     string `yaml:"host"`
	Fragment string `yaml:"fragment"`
}

// DenyList names sources that must not be scraped.
type DenyList struct {
	Hosts []string   `yaml:"hosts"`
	Paths []PathRule `yaml:"paths"`
}

// FeedsConfig is the YAML layout of the feeds file:
//
//	presets:
//	  - name: TRT_Manset
//	    url: https://www.trthaber.com/manset.rss
//	deny:
//	  hosts: [haberturk.com]
//	  paths:
//	    - {host: aa.com.tr, fragment: /teyithatti}
type FeedsConfig struct {
	Presets []Preset `yaml:"presets"`
	Deny    DenyList `yaml:"deny"`
}

// Blocked reports whether rawURL points at a denied source. Unparseable URLs
// are not blocked.
func (d DenyList) Blocked(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)
	if host == "" {
		return false
	}

	for _, h := range d.Hosts {
		if hostMatches(host, strings.ToLower(h)) {
			return true
		}
	}
	for _, r := range d.Paths {
		if hostMatches(host, strings.ToLower(r.Host)) && strings.Contains(path, strings.ToLower(r.Fragment)) {
			return true
		}
	}
	return false
}

// hostMatches accepts the domain itself and any of its subdomains.
func hostMatches(host, domain string) bool {
	domain = strings.TrimPrefix(domain, "www.")
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// DefaultFeeds is used when no feeds file exists.
func DefaultFeeds() FeedsConfig {
	return FeedsConfig{
		Presets: []Preset{
			{"TRT_Manset", "https://www.trthaber.com/manset.rss"},
			{"TRT_SonDakika", "https://www.trthaber.com/sondakika.rss"},
			{"CNNTurk_Tum", "https://www.cnnturk.com/feed/rss/all/news"},
			{"NTV_SonDakika", "https://www.ntv.com.tr/son-dakika.rss"},
			{"NTV_Gundem", "https://www.ntv.com.tr/gundem.rss"},
			{"Sozcu_Gundem", "https://www.sozcu.com.tr/rss/gundem.xml"},
			{"Sozcu_Dunya", "https://www.sozcu.com.tr/rss/dunya.xml"},
			{"Milliyet_SonDakika", "https://www.milliyet.com.tr/rss/rssNew/sondakikaRss.xml"},
			{"Milliyet_Gundem", "https://www.milliyet.com.tr/rss/rssNew/gundemRss.xml"},
			{"Sabah_SonDakika", "https://www.sabah.com.tr/rss/sondakika.xml"},
			{"Sabah_Gundem", "https://www.sabah.com.tr/rss/gundem.xml"},
			{"Hurriyet_Gundem", "https://www.hurriyet.com.tr/rss/gundem/"},
			{"Hurriyet_SonDakika", "https://www.hurriyet.com.tr/rss/son-dakika/"},
			{"Cumhuriyet_SonDakika", "https://www.cumhuriyet.com.tr/rss/son-dakika.xml"},
			{"Cumhuriyet_Gundem", "https://www.cumhuriyet.com.tr/rss/gundem.xml"},
			{"EnSonHaber_SonDakika", "https://www.ensonhaber.com/rss/ensonhaber.xml"},
			{"YeniSafak_Gundem", "https://www.yenisafak.com/rss?xml=gundem"},
			{"YeniSafak_Dunya", "https://www.yenisafak.com/rss?xml=dunya"},
			{"AHaber_SonDakika", "https://www.ahaber.com.tr/rss/son-dakika.xml"},
		},
		Deny: DenyList{
			Hosts: []string{"haberturk.com"},
			Paths: []PathRule{{Host: "aa.com.tr", Fragment: "/teyithatti"}},
		},
	}
}

// LoadFeeds reads the feeds file at path.
func LoadFeeds(path string) (FeedsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FeedsConfig{}, err
	}

	var cfg FeedsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FeedsConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	seen := make(map[string]bool, len(cfg.Presets))
	for i, p := range cfg.Presets {
		if p.Name == "" || p.URL == "" {
			return FeedsConfig{}, fmt.Errorf("%s: preset %d needs name and url", path, i)
		}
		if seen[p.Name] {
			return FeedsConfig{}, fmt.Errorf("%s: duplicate preset %q", path, p.Name)
		}
		seen[p.Name] = true
	}
	return cfg, nil
}

// Registry holds the current presets and deny list. It is safe for concurrent
// use and can be reloaded from its file.
type Registry struct {
	path   string
	logger *slog.Logger

	mu  sync.RWMutex
	cfg FeedsConfig
}

// NewRegistry loads path, falling back to DefaultFeeds when path is empty or
// the file does not exist.
func NewRegistry(path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{path: path, logger: logger.With("component", "feeds"), cfg: DefaultFeeds()}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewStaticRegistry serves cfg without a backing file.
func NewStaticRegistry(cfg FeedsConfig) *Registry {
	return &Registry{cfg: cfg, logger: slog.Default()}
}

func (r *Registry) Path() string { return r.path }

// Reload re-reads the file. On error the previous configuration stays active.
func (r *Registry) Reload() error {
	if r.path == "" {
		return nil
	}
	cfg, err := LoadFeeds(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Info("feeds file not found, using built-in presets", "path", r.path)
		cfg, err = DefaultFeeds(), nil
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	r.logger.Info("feeds loaded", "path", r.path, "presets", len(cfg.Presets), "deny_hosts", len(cfg.Deny.Hosts))
	return nil
}

// Names lists preset names in file order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.cfg.Presets))
	for i, p := range r.cfg.Presets {
		names[i] = p.Name
	}
	return names
}

func (r *Registry) Presets() []Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Preset(nil), r.cfg.Presets...)
}

// Lookup resolves a preset name to its URL.
func (r *Registry) Lookup(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.cfg.Presets {
		if p.Name == name {
			return p.URL, true
		}
	}
	return "", false
}

func (r *Registry) Blocked(rawURL string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.Deny.Blocked(rawURL)
}
