package handler

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// flashCookie carries a one-shot notification across a redirect. It is
// consumed (and cleared) by the first page render that sees it.
const flashCookie = "portal_flash"

// Flash levels.
const (
	FlashNotice = "notice"
	FlashError  = "error"
)

// Flash is a one-shot notification shown at the top of the next page.
type Flash struct {
	Level   string
	Message string
}

// setFlash queues a flash message for the next rendered page.
func setFlash(w http.ResponseWriter, level, message string) {
	value := level + "|" + message
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.URLEncoding.EncodeToString([]byte(value)),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the pending flash message, if any. Malformed
// cookies are dropped silently.
func takeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.URLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	level, message, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil
	}
	switch level {
	case FlashNotice, FlashError:
		return &Flash{Level: level, Message: message}
	default:
		return nil
	}
}
