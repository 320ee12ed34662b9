package compiler

import "github.com/AdguardTeam/ubxfilter/ubx"

// MIME kind tags for REDIRECT_RESOURCES entries; the host's packaged
// resource directory uses these to set a Content-Type when serving a
// surrogate.
const (
	mimeJS uint16 = iota
	mimeGIF
	mimeHTML
	mimeEmpty
	mimeMP3
	mimeMP4
	mimeCSS
	mimeText
)

// redirectResourceDef is one entry in the compile-time-known surrogate
// catalog, keyed by the token names $redirect=/$redirect-rule= refer to.
// Grounded on uBO/AdGuard's well-known redirect resource set.
type redirectResourceDef struct {
	name string
	path string
	mime uint16
}

var redirectResourceDefs = []redirectResourceDef{
	{"noop.js", "/web_accessible/noop.js", mimeJS},
	{"noopjs", "/web_accessible/noop.js", mimeJS},
	{"noop.html", "/web_accessible/noop.html", mimeHTML},
	{"noopframe", "/web_accessible/noop.html", mimeHTML},
	{"noop.css", "/web_accessible/noop.css", mimeCSS},
	{"noopcss", "/web_accessible/noop.css", mimeCSS},
	{"noop-0.1s.mp3", "/web_accessible/noop-0.1s.mp3", mimeMP3},
	{"noop-1s.mp4", "/web_accessible/noop-1s.mp4", mimeMP4},
	{"noop.txt", "/web_accessible/noop.txt", mimeText},
	{"empty", "/web_accessible/empty", mimeEmpty},
	{"1x1.gif", "/web_accessible/1x1.gif", mimeGIF},
	{"1x1-transparent.gif", "/web_accessible/1x1.gif", mimeGIF},
	{"2x2.png", "/web_accessible/2x2.png", mimeGIF},
	{"3x2.png", "/web_accessible/3x2.png", mimeGIF},
	{"click2load.html", "/web_accessible/click2load.html", mimeHTML},
}

// redirectCatalog tracks, for a single compile, which builtin resources
// were actually referenced, interning each one at most once and returning
// its REDIRECT_RESOURCES index.
type redirectCatalog struct {
	strpool *ubx.StrPoolBuilder
	indexOf map[string]uint32
	entries []ubx.RedirectResource
}

func newRedirectCatalog(strpool *ubx.StrPoolBuilder) *redirectCatalog {
	return &redirectCatalog{
		strpool: strpool,
		indexOf: map[string]uint32{},
	}
}

// resolve returns the REDIRECT_RESOURCES index for token, registering it on
// first use. ok is false if token isn't a known surrogate name.
func (c *redirectCatalog) resolve(token string) (idx uint32, ok bool) {
	if i, found := c.indexOf[token]; found {
		return i, true
	}

	for _, def := range redirectResourceDefs {
		if def.name != token {
			continue
		}

		idx = uint32(len(c.entries))
		c.entries = append(c.entries, ubx.RedirectResource{
			Token:    c.strpool.Intern(def.name),
			Path:     c.strpool.Intern(def.path),
			MimeKind: def.mime,
		})
		c.indexOf[token] = idx

		return idx, true
	}

	return 0, false
}

func (c *redirectCatalog) build() []byte {
	return ubx.BuildRedirectResources(c.entries)
}
