package webbeans

import (
	"fmt"
	"html/template"

	"github.com/01fortes/goboot-web/pkg/web"
)

// TemplateFuncs returns the template functions of app. The "bean" function,
// resolving a container component by name, is only present once template
// integration is enabled.
func TemplateFuncs(app *web.Context, settings *Settings) template.FuncMap {
	if settings == nil {
		settings = Global()
	}
	funcs := template.FuncMap{}
	if !settings.TemplateIntegrationEnabled() {
		return funcs
	}

	funcs["bean"] = func(name string) (interface{}, error) {
		c, ok := ContainerOf(app)
		if !ok {
			return nil, fmt.Errorf("no container published for %s", app.Name())
		}
		return c.GetComponentByName(name)
	}
	return funcs
}
