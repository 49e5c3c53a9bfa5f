package handler

import (
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"
)

// TemplateRenderer echo 模板渲染器
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer 解析 fsys 下所有 html 模板
func NewTemplateRenderer(fsys fs.FS) (*TemplateRenderer, error) {
	templates, err := template.ParseFS(fsys, "*.html")
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{templates: templates}, nil
}

var _ echo.Renderer = (*TemplateRenderer)(nil)

func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
