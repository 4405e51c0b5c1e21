package widget

import (
	_ "embed"
	"errors"
	"io"
	"net/url"
	"regexp"
	"strings"
	"text/template"
)

// 挂件与宿主页面之间的 postMessage 约定，已嵌入第三方站点，不可修改
const (
	MessageExpand   = "expand"
	MessageCollapse = "collapse"
)

const (
	VariantDefault = ""
	VariantCompact = "compact"
)

// Size iframe 尺寸，单位 px
type Size struct {
	Width  int
	Height int
}

var (
	CollapsedSize = Size{Width: 80, Height: 80}
	ExpandedSize  = Size{Width: 400, Height: 610}
	CompactSize   = Size{Width: 380, Height: 640}
)

var (
	ErrInvalidBaseURL = errors.New("widget: base url must be absolute http(s)")
	ErrInvalidGlobal  = errors.New("widget: global name must be a javascript identifier")
	ErrInvalidVariant = errors.New("widget: unknown variant")
)

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

//go:embed loader.js.tmpl
var loaderSource string

var loaderTmpl = template.Must(template.New("loader").Parse(loaderSource))

// LoaderConfig 渲染嵌入脚本所需的全部输入
type LoaderConfig struct {
	// BaseURL 挂件页面所在的站点，如 https://chat.example.com
	BaseURL string
	// WebsiteIDGlobal 宿主页面设置工作区 ID 的全局变量名
	WebsiteIDGlobal string
	// UserGlobal 宿主页面设置访客身份 {name,email,externalId} 的全局变量名
	UserGlobal string
	Variant    string
}

func (c LoaderConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if !identifier.MatchString(c.WebsiteIDGlobal) || !identifier.MatchString(c.UserGlobal) {
		return ErrInvalidGlobal
	}
	if c.Variant != VariantDefault && c.Variant != VariantCompact {
		return ErrInvalidVariant
	}
	return nil
}

// Expanded 展开后的尺寸，随变体不同
func (c LoaderConfig) Expanded() Size {
	if c.Variant == VariantCompact {
		return CompactSize
	}
	return ExpandedSize
}

type loaderData struct {
	BaseURL         string
	WebsiteIDGlobal string
	UserGlobal      string
	Collapsed       Size
	Expanded        Size
	Expand          string
	Collapse        string
}

// RenderLoader 校验后输出脚本
func RenderLoader(w io.Writer, cfg LoaderConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return loaderTmpl.Execute(w, loaderData{
		BaseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		WebsiteIDGlobal: cfg.WebsiteIDGlobal,
		UserGlobal:      cfg.UserGlobal,
		Collapsed:       CollapsedSize,
		Expanded:        cfg.Expanded(),
		Expand:          MessageExpand,
		Collapse:        MessageCollapse,
	})
}
