// Package localization loads per-language message resources and resolves
// user-facing strings against them, falling back to English.
package localization

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pitabwire/util"
	"golang.org/x/text/language"
)

const (
	// resourceExtension is the recognized suffix for translation resource
	// files; the stem is the language code, e.g. "en.toml".
	resourceExtension = ".toml"

	// DefaultLanguage is the fallback language for unresolved lookups.
	DefaultLanguage = "en"
)

// ErrNotADirectory is returned when the configured resource location exists
// but is not a directory.
var ErrNotADirectory = errors.New("translations path is not a directory")

type contextKey string

func (c contextKey) String() string {
	return "shipyard/localization/" + string(c)
}

const ctxKeyLanguage = contextKey("languageKey")

// ToContext adds preferred languages to the current supplied context.
func ToContext(ctx context.Context, lang []string) context.Context {
	return context.WithValue(ctx, ctxKeyLanguage, lang)
}

// FromContext extracts preferred languages from the supplied context if any
// exist.
func FromContext(ctx context.Context) []string {
	languages, ok := ctx.Value(ctxKeyLanguage).([]string)
	if !ok {
		return nil
	}

	return languages
}

type options struct {
	directory       string
	language        string
	defaultLanguage string
}

type Option func(*options)

// WithDirectory sets the directory scanned for <lang>.toml resource files.
func WithDirectory(dir string) Option {
	return func(o *options) {
		o.directory = dir
	}
}

// WithLanguage sets the active language explicitly, overriding any
// environment configured value.
func WithLanguage(lang string) Option {
	return func(o *options) {
		o.language = lang
	}
}

// WithDefaultLanguage overrides the fallback language.
func WithDefaultLanguage(lang string) Option {
	return func(o *options) {
		o.defaultLanguage = lang
	}
}

// Manager owns the translation bundle and the active language selection.
type Manager struct {
	bundle          *i18n.Bundle
	language        string
	defaultLanguage string
	loaded          []string
}

// New scans the resource directory and builds a translation manager.
// A missing directory yields an empty bundle where every lookup falls back
// to its message ID. A single unreadable resource file is logged and
// skipped, never aborting the remaining files.
func New(ctx context.Context, opts ...Option) (*Manager, error) {
	o := options{
		directory:       "localization",
		defaultLanguage: DefaultLanguage,
	}
	for _, opt := range opts {
		opt(&o)
	}

	lang := strings.ToLower(strings.TrimSpace(o.language))
	if lang == "" {
		lang = strings.ToLower(strings.TrimSpace(o.defaultLanguage))
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	m := &Manager{
		bundle:          bundle,
		language:        lang,
		defaultLanguage: strings.ToLower(strings.TrimSpace(o.defaultLanguage)),
	}

	info, err := os.Stat(o.directory)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking translations directory %q: %w", o.directory, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrNotADirectory, o.directory)
	}

	entries, err := os.ReadDir(o.directory)
	if err != nil {
		return nil, fmt.Errorf("scanning translations directory %q: %w", o.directory, err)
	}

	log := util.Log(ctx)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, resourceExtension) {
			continue
		}
		stem := strings.TrimSuffix(name, resourceExtension)
		if stem == "" {
			continue
		}

		path := filepath.Join(o.directory, name)
		if _, loadErr := bundle.LoadMessageFile(path); loadErr != nil {
			log.WithError(loadErr).
				WithField("file", path).
				Warn("skipping unloadable translation resource")
			continue
		}

		m.loaded = append(m.loaded, strings.ToLower(stem))
	}
	sort.Strings(m.loaded)

	return m, nil
}

// Bundle exposes the translation bundle for direct localizer use.
func (m *Manager) Bundle() *i18n.Bundle {
	return m.bundle
}

// Language returns the active language code.
func (m *Manager) Language() string {
	return m.language
}

// Languages lists the language codes loaded from the resource directory.
func (m *Manager) Languages() []string {
	out := make([]string, len(m.loaded))
	copy(out, m.loaded)
	return out
}

// Translate resolves messageID in the active language, falling back to the
// default language and finally to the message ID itself. When positional
// args are supplied the resolved template is formatted with them. It never
// returns an error to the caller.
func (m *Manager) Translate(ctx context.Context, messageID string, args ...any) string {
	msg := m.localize(ctx, strings.TrimSpace(messageID), nil, 1)
	if len(args) > 0 && strings.Contains(msg, "%") {
		formatted := fmt.Sprintf(msg, args...)
		// A literal percent sign in a message body is not a directive.
		// fmt marks every mis-parse with "%!", so a clean result is the
		// only one worth returning over the raw message.
		if !strings.Contains(formatted, "%!") {
			return formatted
		}
	}
	return msg
}

// TranslateWithMap resolves messageID substituting named template variables.
func (m *Manager) TranslateWithMap(ctx context.Context, messageID string, variables map[string]any) string {
	return m.localize(ctx, strings.TrimSpace(messageID), variables, 1)
}

// TranslateWithMapAndCount resolves messageID with variables and pluralizes
// on count.
func (m *Manager) TranslateWithMapAndCount(ctx context.Context, messageID string, variables map[string]any, count int) string {
	return m.localize(ctx, strings.TrimSpace(messageID), variables, count)
}

func (m *Manager) localize(ctx context.Context, messageID string, variables map[string]any, count int) string {
	localizer := i18n.NewLocalizer(m.bundle, m.acceptLanguages(ctx)...)

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID: messageID,
		DefaultMessage: &i18n.Message{
			ID:    messageID,
			Other: messageID,
		},
		TemplateData: variables,
		PluralCount:  count,
	})
	if err != nil {
		util.Log(ctx).WithError(err).
			WithField("messageID", messageID).
			Warn("could not perform translation")
		return messageID
	}

	return msg
}

func (m *Manager) acceptLanguages(ctx context.Context) []string {
	var langs []string
	langs = append(langs, FromContext(ctx)...)
	if m.language != "" {
		langs = append(langs, m.language)
	}
	if m.defaultLanguage != "" && m.defaultLanguage != m.language {
		langs = append(langs, m.defaultLanguage)
	}
	return langs
}
