package sitecheck

import (
	"net/http"
	"strings"
)

// BlockType names the anti-bot wall that stood between the analyzer and a
// lead's site. A walled site still classifies by what was fetched; the block
// only tells the operator why the score may be unfair.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// jsShellMaxBytes bounds the body size of a page that is only a script
// loader or redirect.
const jsShellMaxBytes = 2000

type blockMarker struct {
	kind BlockType
	all  []string // every needle must appear
}

// Checked in order; the first match wins.
var blockMarkers = []blockMarker{
	{BlockCloudflare, []string{"checking your browser"}},
	{BlockCloudflare, []string{"verificando seu navegador"}},
	{BlockCloudflare, []string{"cf-browser-verification"}},
	{BlockCloudflare, []string{"cf-challenge"}},
	{BlockCloudflare, []string{"cloudflare", "challenge"}},
	{BlockCaptcha, []string{"captcha"}},
}

// DetectBlock reports the bot wall a fetched page shows, if any. It runs on
// any status: a 403 or 503 carrying Cloudflare headers is a wall even with
// an empty body.
func DetectBlock(p *Page) (bool, BlockType) {
	if p == nil {
		return false, BlockNone
	}
	if edgeDenied(p.StatusCode, p.Header) {
		return true, BlockCloudflare
	}

	lower := strings.ToLower(string(p.Body))
	for _, m := range blockMarkers {
		if containsAll(lower, m.all) {
			return true, m.kind
		}
	}

	if p.OK() && len(p.Body) < jsShellMaxBytes && isJSShell(lower) {
		return true, BlockJSShell
	}
	return false, BlockNone
}

func edgeDenied(status int, h http.Header) bool {
	if status != http.StatusForbidden && status != http.StatusServiceUnavailable {
		return false
	}
	if h == nil {
		return false
	}
	return h.Get("Cf-Ray") != "" || h.Get("Cf-Mitigated") != "" ||
		strings.EqualFold(h.Get("Server"), "cloudflare")
}

func isJSShell(lower string) bool {
	if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
		return true
	}
	return strings.Contains(lower, `http-equiv="refresh"`)
}

func containsAll(s string, needles []string) bool {
	for _, n := range needles {
		if !strings.Contains(s, n) {
			return false
		}
	}
	return true
}
