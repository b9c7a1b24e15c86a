package http

import _ "embed"

//go:embed ui/index.html
var indexHTML []byte
