package widget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() LoaderConfig {
	return LoaderConfig{
		BaseURL:         "https://chat.example.com/",
		WebsiteIDGlobal: "HELPDOCK_WEBSITE_ID",
		UserGlobal:      "HELPDOCK_USER",
	}
}

func TestRenderLoaderKeepsEmbedContract(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, RenderLoader(&sb, validConfig()))
	js := sb.String()

	assert.Contains(t, js, `w["HELPDOCK_WEBSITE_ID"]`)
	assert.Contains(t, js, `w["HELPDOCK_USER"]`)
	assert.Contains(t, js, `"https://chat.example.com/widget/"`)
	assert.Contains(t, js, `var collapsed = { w: 80, h: 80 }`)
	assert.Contains(t, js, `var expanded = { w: 400, h: 610 }`)
	assert.Contains(t, js, `e.data === "expand"`)
	assert.Contains(t, js, `e.data === "collapse"`)
}

func TestRenderLoaderCompactVariant(t *testing.T) {
	cfg := validConfig()
	cfg.Variant = VariantCompact
	var sb strings.Builder
	require.NoError(t, RenderLoader(&sb, cfg))

	assert.Contains(t, sb.String(), `var expanded = { w: 380, h: 640 }`)
}

func TestLoaderConfigValidation(t *testing.T) {
	cases := map[string]func(*LoaderConfig){
		"relative base":  func(c *LoaderConfig) { c.BaseURL = "/chat" },
		"ftp base":       func(c *LoaderConfig) { c.BaseURL = "ftp://x.io" },
		"global quote":   func(c *LoaderConfig) { c.WebsiteIDGlobal = `X"];alert(1);//` },
		"global digit":   func(c *LoaderConfig) { c.UserGlobal = "1USER" },
		"unknown layout": func(c *LoaderConfig) { c.Variant = "huge" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
			assert.Error(t, RenderLoader(&strings.Builder{}, cfg))
		})
	}
}

func TestRenderFramePostsResizeMessages(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, RenderFrame(&sb, FrameData{
		WorkspaceID:  "ws-1",
		DisplayName:  "Acme <Support>",
		VisitorEmail: "jane@x.com",
	}))
	html := sb.String()

	assert.Contains(t, html, `"expand"`)
	assert.Contains(t, html, `"collapse"`)
	assert.Contains(t, html, "Acme &lt;Support&gt;")
	assert.Contains(t, html, `data-workspace="ws-1"`)
	assert.Contains(t, html, "#2563eb")
}
