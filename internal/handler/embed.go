package handler

import (
	"bytes"
	"crypto/rand"
	"embed"
	"encoding/base64"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
)

//go:embed templates/embed.html
var templateFS embed.FS

var embedTemplate = template.Must(template.ParseFS(templateFS, "templates/embed.html"))

// embedReservedParams are query parameters applied to the element rather
// than passed to the bot.
var embedReservedParams = map[string]bool{"style": true, "class": true}

// BotProps are assigned to the <typebot-standard> element.
type BotProps struct {
	Typebot            string            `json:"typebot"`
	APIHost            string            `json:"apiHost,omitempty"`
	PrefilledVariables map[string]string `json:"prefilledVariables,omitempty"`
}

type embedPage struct {
	Title     string
	Nonce     string
	Style     template.CSS
	Class     string
	Props     BotProps
	ScriptURL string
}

// EmbedHandler renders the standard embed page for a bot.
type EmbedHandler struct {
	scriptURL    string
	scriptOrigin string
	apiHost      string
	logger       *slog.Logger
}

// NewEmbedHandler creates a new EmbedHandler. scriptURL points at the web
// component bundle; apiHost is handed to the widget.
func NewEmbedHandler(scriptURL, apiHost string, logger *slog.Logger) *EmbedHandler {
	origin := ""
	if u, err := url.Parse(scriptURL); err == nil && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}
	return &EmbedHandler{
		scriptURL:    scriptURL,
		scriptOrigin: origin,
		apiHost:      apiHost,
		logger:       logger,
	}
}

// Standard handles GET /embed/{typebotId}
func (h *EmbedHandler) Standard(w http.ResponseWriter, r *http.Request) {
	typebotID := chi.URLParam(r, "typebotId")
	q := r.URL.Query()

	nonce, err := newNonce()
	if err != nil {
		h.logger.Error("failed to generate nonce", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	page := embedPage{
		Title:     "Chat",
		Nonce:     nonce,
		Style:     sanitizeStyle(q.Get("style")),
		Class:     q.Get("class"),
		ScriptURL: h.scriptURL,
		Props: BotProps{
			Typebot:            typebotID,
			APIHost:            h.apiHost,
			PrefilledVariables: prefilledVariables(q),
		},
	}

	var buf bytes.Buffer
	if err := embedTemplate.Execute(&buf, page); err != nil {
		h.logger.Error("failed to render embed page", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", h.contentSecurityPolicy(nonce))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *EmbedHandler) contentSecurityPolicy(nonce string) string {
	scriptSrc := "'nonce-" + nonce + "'"
	if h.scriptOrigin != "" {
		scriptSrc += " " + h.scriptOrigin
	}
	return "default-src 'self'; script-src " + scriptSrc +
		"; style-src 'self' 'unsafe-inline'; img-src * data: blob:; media-src *; connect-src *; font-src *; frame-ancestors *"
}

// prefilledVariables collects every non-reserved query parameter. The first
// value of a repeated parameter wins.
func prefilledVariables(q url.Values) map[string]string {
	var vars map[string]string
	for k := range q {
		if embedReservedParams[k] {
			continue
		}
		if vars == nil {
			vars = make(map[string]string, len(q))
		}
		vars[k] = q.Get(k)
	}
	return vars
}

var (
	cssPropertyPattern = regexp.MustCompile(`^-?[a-zA-Z][a-zA-Z-]*$`)
	cssValuePattern    = regexp.MustCompile(`^[a-zA-Z0-9#%.,\s-]+$`)
)

// sanitizeStyle keeps only "property: value" declarations built from plain
// tokens. Anything that could open a url(), expression or string is dropped.
func sanitizeStyle(style string) template.CSS {
	var decls []string
	for _, decl := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(prop)
		value = strings.TrimSpace(value)
		if !cssPropertyPattern.MatchString(prop) || !cssValuePattern.MatchString(value) {
			continue
		}
		decls = append(decls, prop+": "+value)
	}
	return template.CSS(strings.Join(decls, "; "))
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
