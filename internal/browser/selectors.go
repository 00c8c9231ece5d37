package browser

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SelectorSet contains the DOM lookup points the dispatcher depends on.
// WhatsApp Web changes these across releases and locales, so they are data,
// not code: defaults live here and a YAML file can override any of them.
type SelectorSet struct {
	SendURL        string `yaml:"sendUrl"`        // deep-link template: phone, then url-encoded text
	Composer       string `yaml:"composer"`       // message composition element, current markup
	ComposerLegacy string `yaml:"composerLegacy"` // fallback for older account/language variants
	ComposerChild  string `yaml:"composerChild"`  // text node inside the composer, for key fallback
	SendButton     string `yaml:"sendButton"`     // send controls across locales, comma-separated
	OutgoingMarker string `yaml:"outgoingMarker"` // any marker proving a message left the composer
}

// WhatsAppSelectors returns the default selectors for WhatsApp Web.
func WhatsAppSelectors() SelectorSet {
	return SelectorSet{
		SendURL:        "https://web.whatsapp.com/send?phone=%s&text=%s&type=phone_number&app_absent=0",
		Composer:       "div[contenteditable='true'][data-lexical-editor='true']",
		ComposerLegacy: "div[contenteditable='true'][data-tab]",
		ComposerChild:  "p.selectable-text.copyable-text",
		SendButton:     "span[data-icon='wds-ic-send-filled'], span[data-icon='send'], button[aria-label='Send'], button[aria-label='Göndər']",
		OutgoingMarker: "div.message-out, div[data-testid='msg-outgoing'], span[data-icon='msg-check'], span[data-icon='msg-dblcheck']",
	}
}

// LoadSelectors merges overrides from a YAML file over the defaults.
// A missing file returns the defaults unchanged.
func LoadSelectors(path string) (SelectorSet, error) {
	sel := WhatsAppSelectors()
	if path == "" {
		return sel, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return sel, nil
	}
	if err != nil {
		return sel, fmt.Errorf("read selectors file %s: %w", path, err)
	}

	var override SelectorSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return sel, fmt.Errorf("parse selectors file %s: %w", path, err)
	}
	sel.merge(override)
	return sel, nil
}

func (s *SelectorSet) merge(o SelectorSet) {
	if o.SendURL != "" {
		s.SendURL = o.SendURL
	}
	if o.Composer != "" {
		s.Composer = o.Composer
	}
	if o.ComposerLegacy != "" {
		s.ComposerLegacy = o.ComposerLegacy
	}
	if o.ComposerChild != "" {
		s.ComposerChild = o.ComposerChild
	}
	if o.SendButton != "" {
		s.SendButton = o.SendButton
	}
	if o.OutgoingMarker != "" {
		s.OutgoingMarker = o.OutgoingMarker
	}
}
