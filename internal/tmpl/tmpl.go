// Package tmpl renders the small set of operator-facing text templates
// the engine produces (M115 version banner, the boot banner). The M117
// message echo is formatted directly by the planner, not here. Grounded on the teacher's vendor/common/jinja2/jinja2.go, a
// thin wrapper around github.com/flosch/pongo2/v5.
package tmpl

import (
	pongo2 "github.com/flosch/pongo2/v5"
)

// Engine holds a pongo2 template set.
type Engine struct {
	set *pongo2.TemplateSet
}

func New() *Engine {
	return &Engine{set: pongo2.NewSet("motionctl", pongo2.DefaultLoader)}
}

// Render compiles and executes src with ctx in one call; templates here
// are short and not reused often enough to warrant caching compiled forms.
func (e *Engine) Render(src string, ctx pongo2.Context) (string, error) {
	t, err := e.set.FromString(src)
	if err != nil {
		return "", err
	}
	return t.Execute(ctx)
}

// VersionTemplate is the M115 reply body (spec.md §6).
const VersionTemplate = `PROTOCOL_VERSION:{{ protocol }} FIRMWARE_NAME:{{ name }} FIRMWARE_URL:{{ url }}`

// BootBannerTemplate greets the operator with the resolved config summary
// when the engine starts (supplemented ambient logging, SPEC_FULL.md §4).
const BootBannerTemplate = `{{ name }} {{ protocol }} starting (session {{ session }}){% if debug %}
{% for line in config_lines %}// {{ line }}
{% endfor %}{% endif %}`

// Version renders the M115 reply.
func (e *Engine) Version(name, protocol, url string) (string, error) {
	return e.Render(VersionTemplate, pongo2.Context{
		"name": name, "protocol": protocol, "url": url,
	})
}

// BootBanner renders the startup banner, including the per-axis config
// dump lines when debug is enabled.
func (e *Engine) BootBanner(name, protocol, session string, debug bool, configLines []string) (string, error) {
	return e.Render(BootBannerTemplate, pongo2.Context{
		"name": name, "protocol": protocol, "session": session,
		"debug": debug, "config_lines": configLines,
	})
}
