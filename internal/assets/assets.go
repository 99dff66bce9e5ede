package assets

import "embed"

//go:embed all:web/*.html
var WebFS embed.FS
