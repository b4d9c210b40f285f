// Package collector implements the Browser List Collector (C3): a
// real-browser session (github.com/go-rod/rod, with go-rod/stealth for
// anti-automation resistance) that scrapes follow/follower lists from
// rendered HTML. Grounded on the session-as-owned-resource pattern in
// the teacher's internal/flow/client.go (Close()) and main.go's
// defer-based cleanup sequence.
package collector

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures one Collector session.
type Config struct {
	ChromeBinary    string
	Headless        bool
	CookiesPath     string
	DelayMin        time.Duration
	DelayMax        time.Duration
	MaxScrollRounds int
	NavTimeout      time.Duration
}

func (c *Config) applyDefaults() {
	if c.DelayMin <= 0 {
		c.DelayMin = 4 * time.Second
	}
	if c.DelayMax <= 0 {
		c.DelayMax = 9 * time.Second
	}
	if c.MaxScrollRounds <= 0 {
		c.MaxScrollRounds = 6
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
}

// Session owns one long-lived browser process for the duration of a
// run. It is released on scope exit via Close, which is guaranteed
// cleanup regardless of how the run terminated.
type Session struct {
	cfg     Config
	browser *rod.Browser
	page    *rod.Page
}

// Open launches a browser, loads persisted cookies, and
// opens one stealth-patched page for the lifetime of the session.
func Open(cfg Config) (*Session, error) {
	cfg.applyDefaults()

	l := launcher.New().Headless(cfg.Headless)
	if cfg.ChromeBinary != "" {
		l = l.Bin(cfg.ChromeBinary)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("collector: launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("collector: connect browser: %w", err)
	}

	if cfg.CookiesPath != "" {
		cookies, err := loadCookies(cfg.CookiesPath)
		if err != nil {
			browser.Close()
			return nil, fmt.Errorf("collector: load cookies: %w", err)
		}
		if err := browser.SetCookies(cookies); err != nil {
			browser.Close()
			return nil, fmt.Errorf("collector: set cookies: %w", err)
		}
	}

	page, err := stealth.Page(browser)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("collector: open stealth page: %w", err)
	}

	return &Session{cfg: cfg, browser: browser, page: page}, nil
}

// Close releases the browser session. Safe to call multiple times.
func (s *Session) Close() error {
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	return err
}

func loadCookies(path string) ([]*proto.NetworkCookieParam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cookies []*proto.NetworkCookieParam
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("decode cookies file: %w", err)
	}
	return cookies, nil
}
