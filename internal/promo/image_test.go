package promo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveImage(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "logo inside header",
			page: `<header><div class="logo"><img src="//cdn.example.com/logo.svg"></div></header>`,
			want: "https://cdn.example.com/logo.svg",
		},
		{
			name: "brand element outside header",
			page: `<div id="brand-mark"><img data-src="/assets/mark.png"></div>`,
			want: "https://shop.example.com/assets/mark.png",
		},
		{
			name: "first header image from srcset",
			page: `<header><img src="data:image/gif;base64,R0lGOD"><img srcset="/hero-1x.jpg 1x, /hero-2x.jpg 2x"></header>`,
			want: "https://shop.example.com/hero-1x.jpg",
		},
		{
			name: "apple touch icon",
			page: `<head><link rel="apple-touch-icon" href="/apple-touch-icon.png"></head>`,
			want: "https://shop.example.com/apple-touch-icon.png",
		},
		{
			name: "favicon skips small and ico variants",
			page: `<head>
				<link rel="icon" href="/favicon.ico">
				<link rel="icon" sizes="32x32" href="/f32.png">
				<link rel="shortcut icon" href="/favicon-16x16.png">
				<link rel="icon" sizes="192x192" href="/icon-192.png">
			</head>`,
			want: "https://shop.example.com/icon-192.png",
		},
		{
			name: "open graph image",
			page: `<head><meta property="og:image" content="https://cdn.example.com/og.jpg"></head>`,
			want: "https://cdn.example.com/og.jpg",
		},
		{
			name: "nothing usable",
			page: `<head><link rel="icon" href="/favicon.ico"></head><body><img src="data:image/png;base64,AAAA"></body>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, "<html>"+tt.page+"</html>")
			assert.Equal(t, tt.want, resolveImage(doc, "https://shop.example.com/collections/sale"))
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a.png", normalizeURL("https://cdn.example.com/a.png", nil))
	assert.Equal(t, "", normalizeURL("/a.png", nil))
	assert.Equal(t, "", normalizeURL("  ", nil))
	assert.Equal(t, "", normalizeURL("DATA:image/png;base64,AAAA", nil))
}
