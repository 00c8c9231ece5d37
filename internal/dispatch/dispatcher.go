// Package dispatch drives the browser session to deliver one message to one
// number. It makes a single attempt per call; retry policy, if any, belongs
// to the caller.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"homebase/internal/browser"
	"homebase/internal/domain"
	"homebase/internal/phone"
)

// Timeouts bounds each wait inside a dispatch. There is deliberately no
// overall per-number timeout: a hung browser stalls the batch, and callers
// accept that instead of masking it.
type Timeouts struct {
	Composer   time.Duration // per composer selector strategy
	SendButton time.Duration
	Marker     time.Duration
	Settle     time.Duration // fixed delay after every attempt
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Composer:   25 * time.Second,
		SendButton: 5 * time.Second,
		Marker:     6 * time.Second,
		Settle:     700 * time.Millisecond,
	}
}

// Dispatcher sends messages through the shared browser session.
type Dispatcher struct {
	sessions  *browser.Manager
	selectors browser.SelectorSet
	timeouts  Timeouts
	logger    *slog.Logger
	settle    func(time.Duration)
}

type Config struct {
	Sessions  *browser.Manager
	Selectors browser.SelectorSet
	Timeouts  Timeouts
	Logger    *slog.Logger
}

func New(cfg Config) *Dispatcher {
	if cfg.Timeouts == (Timeouts{}) {
		cfg.Timeouts = DefaultTimeouts()
	}
	return &Dispatcher{
		sessions:  cfg.Sessions,
		selectors: cfg.Selectors,
		timeouts:  cfg.Timeouts,
		logger:    cfg.Logger,
		settle:    time.Sleep,
	}
}

// Send opens a pre-filled conversation with number, injects message into the
// composer and triggers the send action. The absence of an outgoing-message
// marker afterwards is not a failure; WhatsApp's UI varies too much for that
// check to be load-bearing.
func (d *Dispatcher) Send(ctx context.Context, number phone.Number, message string) domain.Outcome {
	defer d.settle(d.timeouts.Settle)

	out := domain.Outcome{Number: number}
	sess, err := d.sessions.Ensure(ctx)
	if err != nil {
		out.Reason = err.Error()
		return out
	}

	if err := d.deliver(sess.Context(), number, message); err != nil {
		d.logger.Warn("dispatch failed", "number", number, "err", err)
		out.Reason = err.Error()
		return out
	}

	out.OK = true
	out.Reason = "sent"
	return out
}

func (d *Dispatcher) deliver(sessCtx context.Context, number phone.Number, message string) error {
	if err := chromedp.Run(sessCtx, chromedp.Navigate(DeepLink(d.selectors.SendURL, number, message))); err != nil {
		return fmt.Errorf("open conversation: %w", err)
	}

	composer, err := d.waitComposer(sessCtx)
	if err != nil {
		return err
	}

	if err := d.injectMessage(sessCtx, composer, message); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	if err := d.triggerSend(sessCtx, composer); err != nil {
		return err
	}

	d.awaitOutgoingMarker(sessCtx, number)
	return nil
}

// waitComposer locates the message composition element, trying the current
// markup first and the legacy variant second. First match wins.
func (d *Dispatcher) waitComposer(sessCtx context.Context) (string, error) {
	strategies := []string{d.selectors.Composer, d.selectors.ComposerLegacy}
	var lastErr error
	for _, sel := range strategies {
		if sel == "" {
			continue
		}
		waitCtx, cancel := context.WithTimeout(sessCtx, d.timeouts.Composer)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(sel, chromedp.ByQuery))
		cancel()
		if err == nil {
			return sel, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("composer not found: %w", lastErr)
}

// injectMessage replaces the composer content directly and fires a synthetic
// input event so the page's reactive state picks the text up. Simulated
// keystrokes are too slow and too fragile for multi-line bodies.
func (d *Dispatcher) injectMessage(sessCtx context.Context, composerSel, message string) error {
	msgJSON, err := json.Marshal(message)
	if err != nil {
		return err
	}
	selJSON, err := json.Marshal(composerSel)
	if err != nil {
		return err
	}

	script := fmt.Sprintf(`(function(sel, msg) {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.innerHTML = '';
		const p = document.createElement('p');
		p.className = 'selectable-text copyable-text';
		p.dir = 'auto';
		p.innerText = msg;
		el.appendChild(p);
		el.dispatchEvent(new InputEvent('input', {bubbles: true}));
		return true;
	})(%s, %s)`, selJSON, msgJSON)

	var ok bool
	if err := chromedp.Run(sessCtx, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("composer disappeared before injection")
	}
	return nil
}

// triggerSend clicks the send control when one shows up; otherwise it falls
// back to the confirm key on the composer, then on its child text node.
func (d *Dispatcher) triggerSend(sessCtx context.Context, composerSel string) error {
	clickCtx, cancel := context.WithTimeout(sessCtx, d.timeouts.SendButton)
	err := chromedp.Run(clickCtx, chromedp.Click(d.selectors.SendButton, chromedp.ByQuery))
	cancel()
	if err == nil {
		return nil
	}

	keyCtx, cancel := context.WithTimeout(sessCtx, d.timeouts.SendButton)
	defer cancel()
	if err := chromedp.Run(keyCtx, chromedp.SendKeys(composerSel, kb.Enter, chromedp.ByQuery)); err == nil {
		return nil
	}
	child := strings.TrimSpace(composerSel + " " + d.selectors.ComposerChild)
	if err := chromedp.Run(keyCtx, chromedp.SendKeys(child, kb.Enter, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("trigger send: %w", err)
	}
	return nil
}

// awaitOutgoingMarker is a best-effort confirmation only. Its absence proves
// nothing, so the result is logged and discarded.
func (d *Dispatcher) awaitOutgoingMarker(sessCtx context.Context, number phone.Number) {
	markCtx, cancel := context.WithTimeout(sessCtx, d.timeouts.Marker)
	defer cancel()
	if err := chromedp.Run(markCtx, chromedp.WaitReady(d.selectors.OutgoingMarker, chromedp.ByQuery)); err != nil {
		d.logger.Debug("no outgoing marker observed", "number", number)
	}
}

// DeepLink builds the pre-filled conversation URL for a number and message.
// Spaces are percent-encoded; WhatsApp's router does not accept '+' there.
func DeepLink(template string, number phone.Number, message string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return fmt.Sprintf(template, number, encoded)
}
