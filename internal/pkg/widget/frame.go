package widget

import (
	_ "embed"
	"html/template"
	"io"
)

//go:embed frame.html.tmpl
var frameSource string

var frameTmpl = template.Must(template.New("frame").Parse(frameSource))

// FrameData iframe 页面的初始数据，聊天界面本身由前端包渲染
type FrameData struct {
	WorkspaceID string
	Name        string
	BrandColor  string
	DisplayName string
	LogoURL     string
	APIBase     string
	// Visitor 宿主页面经 query 传入的身份
	VisitorName       string
	VisitorEmail      string
	VisitorExternalID string
}

// RenderFrame 输出 iframe 外壳：气泡按钮负责展开收起，并通知宿主页面调整尺寸
func RenderFrame(w io.Writer, data FrameData) error {
	if data.BrandColor == "" {
		data.BrandColor = "#2563eb"
	}
	return frameTmpl.Execute(w, struct {
		FrameData
		Expand   string
		Collapse string
	}{data, MessageExpand, MessageCollapse})
}
