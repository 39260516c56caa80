package webbeans

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/01fortes/goboot-web/pkg/container"
	"github.com/01fortes/goboot-web/pkg/web"
)

const (
	// SecurityValveID identifies the security valve in a pipeline
	SecurityValveID = "webbeans.SecurityValve"

	// PrincipalKey is the request scope key of the authenticated user name
	PrincipalKey = "webbeans.principal"
)

type requestScoper interface {
	BeginRequest(ctx context.Context) (context.Context, *container.RequestScope)
}

// SecurityValve activates a request scope on the application container for
// every request and records the caller's principal in it. Requests pass
// through untouched while no container is published.
type SecurityValve struct {
	attributes *web.Attributes
	logger     *slog.Logger
}

func NewSecurityValve(attributes *web.Attributes, logger *slog.Logger) *SecurityValve {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecurityValve{attributes: attributes, logger: logger}
}

func (v *SecurityValve) ID() string {
	return SecurityValveID
}

func (v *SecurityValve) Invoke(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scoper := v.scoper()
		if scoper == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx, scope := scoper.BeginRequest(r.Context())
		defer scope.End()

		if user, _, ok := r.BasicAuth(); ok && user != "" {
			scope.Set(PrincipalKey, user)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (v *SecurityValve) scoper() requestScoper {
	value, ok := v.attributes.Get(ContainerAttribute)
	if !ok {
		return nil
	}
	scoper, _ := value.(requestScoper)
	return scoper
}

// Principal returns the user name recorded for the request carried by ctx
func Principal(ctx context.Context) (string, bool) {
	scope, ok := container.CurrentRequest(ctx)
	if !ok {
		return "", false
	}
	value, ok := scope.Get(PrincipalKey)
	if !ok {
		return "", false
	}
	principal, ok := value.(string)
	return principal, ok
}

var _ web.Valve = (*SecurityValve)(nil)
