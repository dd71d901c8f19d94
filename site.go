package main

import (
	"context"
	"net/http"

	"github.com/aquilax/sitetree/logger"
)

type siteKey struct{}

type siteContext struct {
	sc *SiteConfig
	ln *Language
}

// withSite resolves the site of the request from the token header.
func (l *SiteTree) withSite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := l.config.getSiteConfig(l.getToken(r))
		site := &siteContext{sc: sc, ln: l.tp.Get(sc.Language)}
		ctx := context.WithValue(r.Context(), siteKey{}, site)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func siteFrom(r *http.Request) *siteContext {
	if site, ok := r.Context().Value(siteKey{}).(*siteContext); ok {
		return site
	}
	logger.Warn("request without site", "path", r.URL.Path)
	return &siteContext{sc: &SiteConfig{}}
}

func (l *SiteTree) getToken(r *http.Request) string {
	return r.Header.Get(l.config.Token)
}

func (s *siteContext) session() *Session {
	return NewSession(s.sc, s.ln)
}

// baseURL prefers the configured site URL over the request host.
func (s *siteContext) baseURL(r *http.Request) string {
	if s.sc.BaseURL != "" {
		return s.sc.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
