package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

// RuleSource provides category rules in evaluation order.
type RuleSource interface {
	ListRules(ctx context.Context) ([]model.CategoryRule, error)
}

// CategoryDefaults are the built-in classifications consulted when no stored
// rule matches.
type CategoryDefaults struct {
	ProductiveApps     []string `yaml:"productive_apps"`
	DistractingApps    []string `yaml:"distracting_apps"`
	ProductiveDomains  []string `yaml:"productive_domains"`
	DistractingDomains []string `yaml:"distracting_domains"`
}

func DefaultCategoryDefaults() CategoryDefaults {
	return CategoryDefaults{
		ProductiveApps: []string{
			"Xcode", "Visual Studio Code", "Code", "GoLand", "IntelliJ IDEA",
			"Terminal", "iTerm2", "Alacritty", "Sublime Text", "Vim", "Neovim",
			"Emacs", "Notion", "Obsidian", "Figma", "Pages", "Numbers", "Keynote",
			"Microsoft Word", "Microsoft Excel", "Microsoft PowerPoint",
		},
		DistractingApps: []string{
			"Messages", "Discord", "Steam", "TV", "Music", "Spotify",
			"Netflix", "Twitter", "TikTok", "Instagram",
		},
		ProductiveDomains: []string{
			"github.com", "gitlab.com", "stackoverflow.com", "go.dev",
			"pkg.go.dev", "developer.apple.com", "docs.google.com",
			"notion.so", "linear.app", "atlassian.net",
		},
		DistractingDomains: []string{
			"youtube.com", "facebook.com", "twitter.com", "x.com",
			"instagram.com", "reddit.com", "tiktok.com", "netflix.com",
			"twitch.tv", "9gag.com",
		},
	}
}

// LoadCategoryDefaults reads built-in lists from a YAML file. Lists missing
// from the file keep their default values.
func LoadCategoryDefaults(file string) (CategoryDefaults, error) {
	defaults := DefaultCategoryDefaults()
	if file == "" {
		return defaults, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return defaults, fmt.Errorf("read category defaults: %w", err)
	}
	var override CategoryDefaults
	if err := yaml.Unmarshal(data, &override); err != nil {
		return defaults, fmt.Errorf("parse category defaults: %w", err)
	}
	if override.ProductiveApps != nil {
		defaults.ProductiveApps = override.ProductiveApps
	}
	if override.DistractingApps != nil {
		defaults.DistractingApps = override.DistractingApps
	}
	if override.ProductiveDomains != nil {
		defaults.ProductiveDomains = override.ProductiveDomains
	}
	if override.DistractingDomains != nil {
		defaults.DistractingDomains = override.DistractingDomains
	}
	return defaults, nil
}

// Categorizer resolves an activity to a category. It never fails: rule store
// errors are logged and the built-in lists are used instead.
type Categorizer struct {
	rules    RuleSource
	defaults CategoryDefaults
	log      *slog.Logger
}

func NewCategorizer(rules RuleSource, defaults CategoryDefaults, log *slog.Logger) *Categorizer {
	if log == nil {
		log = slog.Default()
	}
	return &Categorizer{rules: rules, defaults: defaults, log: log.With("component", "categorizer")}
}

// Categorize evaluates application rules, then URL rules, then window title
// rules, each in rule order. The first match wins.
func (c *Categorizer) Categorize(ctx context.Context, applicationName, rawURL, windowTitle string) model.ActivityCategory {
	app := strings.ToLower(strings.TrimSpace(applicationName))
	host := hostOf(rawURL)
	title := strings.ToLower(strings.TrimSpace(windowTitle))

	if c.rules != nil {
		rules, err := c.rules.ListRules(ctx)
		if err != nil {
			c.log.Warn("load category rules, using built-in lists", "error", err)
		} else if cat, ok := matchRules(rules, app, host, title); ok {
			return cat
		}
	}
	return c.builtin(app, host)
}

func matchRules(rules []model.CategoryRule, app, host, title string) (model.ActivityCategory, bool) {
	if app != "" {
		for _, r := range rules {
			if r.ApplicationNamePattern != nil && matchSubstring(*r.ApplicationNamePattern, app) {
				return ruleCategory(r), true
			}
		}
	}
	if host != "" {
		for _, r := range rules {
			if r.URLPattern != nil && matchHost(*r.URLPattern, host) {
				return ruleCategory(r), true
			}
		}
	}
	if title != "" {
		for _, r := range rules {
			if r.WindowTitlePattern != nil && matchSubstring(*r.WindowTitlePattern, title) {
				return ruleCategory(r), true
			}
		}
	}
	return "", false
}

// ruleCategory resolves the rule's category row. Rows loaded without their
// association fall back to the id, which equals the code for built-ins.
func ruleCategory(r model.CategoryRule) model.ActivityCategory {
	if r.Category.Kind.Valid() {
		return r.Category.Kind
	}
	if cat, err := model.ParseActivityCategory(r.CategoryID); err == nil {
		return cat
	}
	return model.CategoryCustom
}

func (c *Categorizer) builtin(app, host string) model.ActivityCategory {
	if app != "" {
		if containsName(c.defaults.ProductiveApps, app) {
			return model.CategoryProductive
		}
		if containsName(c.defaults.DistractingApps, app) {
			return model.CategoryDistracting
		}
	}
	if host != "" {
		if containsDomain(c.defaults.ProductiveDomains, host) {
			return model.CategoryProductive
		}
		if containsDomain(c.defaults.DistractingDomains, host) {
			return model.CategoryDistracting
		}
	}
	return model.CategoryNeutral
}

func containsName(list []string, app string) bool {
	for _, name := range list {
		if strings.EqualFold(name, app) {
			return true
		}
	}
	return false
}

func containsDomain(list []string, host string) bool {
	for _, domain := range list {
		if matchHost(domain, host) {
			return true
		}
	}
	return false
}

// matchSubstring compares case-insensitively; patterns with * or ? are globs.
func matchSubstring(pattern, value string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return false
	}
	if isGlob(pattern) {
		ok, err := path.Match(pattern, value)
		return err == nil && ok
	}
	return strings.Contains(value, pattern)
}

// matchHost matches the host itself or any subdomain of pattern.
func matchHost(pattern, host string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return false
	}
	if strings.Contains(pattern, "://") {
		pattern = hostOf(pattern)
	}
	pattern = strings.TrimPrefix(pattern, "www.")
	if isGlob(pattern) {
		ok, err := path.Match(pattern, host)
		return err == nil && ok
	}
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}

// hostOf extracts the lower-case host, tolerating URLs without a scheme.
func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
