package docs

import "embed"

// FS contains long-form Markdown docs bundled with the mgn binary.
//
//go:embed guide reference design
var FS embed.FS
