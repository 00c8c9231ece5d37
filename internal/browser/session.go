// Package browser owns the automated Chrome session bound to WhatsApp Web.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

const launchTimeout = 60 * time.Second

// LaunchError signals that the underlying browser could not be started
// (missing Chrome binary, permissions, port conflict). Callers surface it
// once instead of retrying.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string { return fmt.Sprintf("launch browser session: %v", e.Err) }
func (e *LaunchError) Unwrap() error { return e.Err }

// Session is a handle to a live chromedp browser context. All dispatch calls
// for a run go through the same Session; it stays open until the process
// exits or the browser dies.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the chromedp context shared by all commands on this session.
func (s *Session) Context() context.Context { return s.ctx }

// Alive reports whether the session's browser context is still usable.
// Mid-session disconnects are only discovered here, lazily, on the next use.
func (s *Session) Alive() bool {
	return s != nil && s.ctx.Err() == nil
}

// Manager lazily creates and reuses a single browser session per process.
type Manager struct {
	profileDir string
	headless   bool
	landingURL string
	logger     *slog.Logger

	mu   sync.Mutex
	sess *Session
}

// ManagerConfig holds configuration for the session manager.
type ManagerConfig struct {
	ProfileDir string // Chrome user data directory (persists the WhatsApp login)
	Headless   bool
	LandingURL string // messaging web client landing page
	Logger     *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.ProfileDir == "" {
		home, _ := os.UserHomeDir()
		cfg.ProfileDir = filepath.Join(home, ".homebase", "whatsapp-profile")
	}
	if cfg.LandingURL == "" {
		cfg.LandingURL = "https://web.whatsapp.com/"
	}
	return &Manager{
		profileDir: cfg.ProfileDir,
		headless:   cfg.Headless,
		landingURL: cfg.LandingURL,
		logger:     cfg.Logger,
	}
}

// Ensure returns the live session, launching the browser on first use or
// after the previous session died. At most one live session exists per
// process.
func (m *Manager) Ensure(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess.Alive() {
		return m.sess, nil
	}
	if m.sess != nil {
		m.logger.Warn("browser session lost, relaunching", "profile", m.profileDir)
		m.sess.cancel()
		m.sess = nil
	}

	sess, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}
	m.sess = sess
	return sess, nil
}

func (m *Manager) launch(ctx context.Context) (*Session, error) {
	if err := os.MkdirAll(m.profileDir, 0o755); err != nil {
		return nil, &LaunchError{Err: fmt.Errorf("create profile dir %s: %w", m.profileDir, err)}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(m.profileDir),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-notifications", true),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
	)
	if m.headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	cancelAll := func() {
		taskCancel()
		allocCancel()
	}

	navCtx, navCancel := context.WithTimeout(taskCtx, launchTimeout)
	defer navCancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(m.landingURL)); err != nil {
		cancelAll()
		return nil, &LaunchError{Err: err}
	}

	m.logger.Info("browser session started", "profile", m.profileDir, "headless", m.headless)
	return &Session{ctx: taskCtx, cancel: cancelAll}, nil
}

// Login opens a visible browser on the landing page so the operator can scan
// the QR code. Cookies land in the profile directory and survive restarts.
func (m *Manager) Login(ctx context.Context) error {
	m.mu.Lock()
	headless := m.headless
	m.headless = false
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.headless = headless
		m.mu.Unlock()
	}()

	if _, err := m.Ensure(ctx); err != nil {
		return err
	}
	m.logger.Info("browser opened. Scan the QR code if prompted, then press Ctrl+C.")

	<-ctx.Done()
	m.logger.Info("login session saved", "profile", m.profileDir)
	return nil
}

// Close tears down the session if one is live.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != nil {
		m.sess.cancel()
		m.sess = nil
	}
}
