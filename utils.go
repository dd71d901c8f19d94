package main

import (
	"net"
	"net/http"
	"strings"

	"github.com/aquilax/tripcode"
	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

const anonymous = "anonymous"

func hfSlug(s string) string {
	return slug.Make(s) + ".html"
}

func getTripCode(s string) string {
	return tripcode.Tripcode(s)
}

// getActor names the caller for authorship and activity records. A
// password turns into a tripcode so the name cannot be spoofed.
func getActor(r *http.Request) string {
	name := strings.TrimSpace(r.Header.Get("X-Author"))
	if name == "" {
		name = anonymous
	}
	if password := r.Header.Get("X-Author-Password"); password != "" {
		name += "!" + getTripCode(password)
	}
	return name
}

func getRemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func inHoneypot(t string) bool {
	return len(t) > 0
}

func renderText(t string) string {
	extensions := blackfriday.CommonExtensions |
		blackfriday.Autolink |
		blackfriday.HardLineBreak |
		blackfriday.NoIntraEmphasis |
		blackfriday.Tables |
		blackfriday.FencedCode |
		blackfriday.Strikethrough |
		blackfriday.SpaceHeadings |
		blackfriday.AutoHeadingIDs

	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.UseXHTML |
			blackfriday.Smartypants |
			blackfriday.SmartypantsFractions |
			blackfriday.SmartypantsLatexDashes,
	})
	unsafe := blackfriday.Run([]byte(t), blackfriday.WithRenderer(renderer), blackfriday.WithExtensions(extensions))
	return string(bluemonday.UGCPolicy().SanitizeBytes(unsafe))
}
