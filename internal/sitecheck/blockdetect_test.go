package sitecheck

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	cfHeader := http.Header{}
	cfHeader.Set("Cf-Ray", "abc123")

	cases := []struct {
		name string
		page *Page
		want BlockType
	}{
		{"nil", nil, BlockNone},
		{"cloudflare header", &Page{StatusCode: 403, Header: cfHeader}, BlockCloudflare},
		{"cloudflare server 503", &Page{StatusCode: 503, Header: http.Header{"Server": {"cloudflare"}}}, BlockCloudflare},
		{"cf header on 200 is not a wall", &Page{StatusCode: 200, Header: cfHeader, Body: []byte(fullPage)}, BlockNone},
		{"plain 403", &Page{StatusCode: 403, Body: []byte("Forbidden")}, BlockNone},
		{"captcha on 403", &Page{StatusCode: 403, Body: []byte(`<div class="g-recaptcha"></div>`)}, BlockCaptcha},
		{"portuguese interstitial", &Page{StatusCode: 503, Body: []byte("Verificando seu navegador antes de acessar")}, BlockCloudflare},
		{"refresh on 404 is not a shell", &Page{StatusCode: 404, Body: []byte(`<meta http-equiv="refresh" content="0;url=/">`)}, BlockNone},
		{"cloudflare body", &Page{StatusCode: 200, Body: []byte("Checking your browser before accessing")}, BlockCloudflare},
		{"recaptcha", &Page{StatusCode: 200, Body: []byte("complete the reCAPTCHA")}, BlockCaptcha},
		{"js shell", &Page{StatusCode: 200, Body: []byte(`<noscript>Enable JavaScript</noscript>`)}, BlockJSShell},
		{"meta refresh", &Page{StatusCode: 200, Body: []byte(`<meta http-equiv="refresh" content="0;url=/">`)}, BlockJSShell},
		{"normal", &Page{StatusCode: 200, Body: []byte(fullPage)}, BlockNone},
		{"large noscript page", &Page{StatusCode: 200, Body: []byte(`<noscript>javascript</noscript>` + strings.Repeat("x", 3000))}, BlockNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			blocked, kind := DetectBlock(tc.page)
			assert.Equal(t, tc.want, kind)
			assert.Equal(t, tc.want != BlockNone, blocked)
		})
	}
}
