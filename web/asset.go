package web

import (
	"embed"
	"io/fs"
)

//go:embed templates
var templates embed.FS

// Templates 控制台页面模板
func Templates() fs.FS {
	sub, _ := fs.Sub(templates, "templates")
	return sub
}
