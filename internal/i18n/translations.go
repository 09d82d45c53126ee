// Package i18n localizes API error messages.
package i18n

import (
	"embed"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

// Message ids used by the handlers.
const (
	MsgInvalidID           = "InvalidID"
	MsgInvalidBody         = "InvalidBody"
	MsgInvalidPool         = "InvalidPool"
	MsgInvalidStatus       = "InvalidStatus"
	MsgValidationFailed    = "ValidationFailed"
	MsgNotFound            = "NotFound"
	MsgConflict            = "Conflict"
	MsgUnavailable         = "StoreUnavailable"
	MsgInternal            = "Internal"
	MsgSwapStepFailed      = "SwapStepFailed"
	MsgNoSeatsAvailable    = "NoSeatsAvailable"
	MsgNoAssignmentNeeded  = "NoAssignmentNeeded"
	MsgAssignmentCompleted = "AssignmentCompleted"
)

// Translator wraps a go-i18n bundle.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	log             *zap.Logger
}

// NewTranslator loads the embedded active.*.toml files.  An unparsable
// default locale falls back to English.
func NewTranslator(defaultLocale string, log *zap.Logger) *Translator {
	if log == nil {
		log = zap.NewNop()
	}
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.English
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range []string{"active.en.toml", "active.hi.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			log.Warn("i18n: failed to load message file", zap.String("file", file), zap.Error(err))
		}
	}
	return &Translator{bundle: bundle, defaultLanguage: tag, log: log}
}

// T renders message id for an Accept-Language header value.  Missing
// translations fall back to the default language, then to the id itself.
func (t *Translator) T(acceptLanguage, id string, data map[string]any) string {
	if id == "" {
		return ""
	}
	localizer := i18n.NewLocalizer(t.bundle, acceptLanguage, t.defaultLanguage.String())
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		t.log.Debug("i18n: localize failed", zap.String("id", id), zap.String("lang", acceptLanguage), zap.Error(err))
		return id
	}
	return msg
}
