// Package http serves the web interface.
//
// This file implements a small builder for responses that are not full
// template renders: redirects carrying a flash message and plain errors.

package http

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const flashCookie = "flash"

// FlashKind selects the style of a flash message.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
	FlashInfo    FlashKind = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    FlashKind
	Message string
}

// ResponseBuilder provides a fluent API for non-template responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	cookies    []*http.Cookie
	body       []byte
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{statusCode: http.StatusOK, headers: make(map[string]string)}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *ResponseBuilder) Cookie(c *http.Cookie) *ResponseBuilder {
	b.cookies = append(b.cookies, c)
	return b
}

// Flash stores a message for the next page view.
func (b *ResponseBuilder) Flash(kind FlashKind, message string) *ResponseBuilder {
	return b.Cookie(&http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(string(kind) + ":" + message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Redirect answers 303 See Other so a POST is followed by a GET.
func (b *ResponseBuilder) Redirect(location string) *ResponseBuilder {
	b.statusCode = http.StatusSeeOther
	b.headers["Location"] = location
	return b
}

func (b *ResponseBuilder) BodyString(content string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/plain; charset=utf-8"
	b.body = []byte(content)
	return b
}

func (b *ResponseBuilder) BodyHTML(html string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	for _, c := range b.cookies {
		http.SetCookie(w, c)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates an HTML-escaped error page.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		BodyHTML(`<!doctype html><p class="error">` + template.HTMLEscapeString(message) + `</p>`)
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "Something went wrong. Please try again.")
}

func MethodNotAllowedError(allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").
		Header("Allow", allowedMethods)
}

// popFlash reads and clears the flash cookie.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:    flashCookie,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(raw, ":")
	if !ok || msg == "" {
		return nil
	}
	switch FlashKind(kind) {
	case FlashSuccess, FlashError, FlashInfo:
		return &Flash{Kind: FlashKind(kind), Message: msg}
	}
	return nil
}
