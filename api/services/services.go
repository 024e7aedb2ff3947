package services

import (
	"net/http"
	"path"
	"strings"

	"github.com/crash-ph/admin-console/api/backend"
	"github.com/crash-ph/admin-console/api/middleware"
	"github.com/crash-ph/admin-console/internal/appconfig"
	"github.com/crash-ph/admin-console/internal/events"
	"github.com/crash-ph/admin-console/internal/session"
)

// Service contains all shared dependencies for handlers.
type Service struct {
	Config   *appconfig.Config
	Backend  *backend.Client
	Sessions *middleware.Sessions
	Events   events.Notifier
	Pages    *Renderer
}

// Path prefixes p with the configured base path.
func (svc *Service) Path(p string) string {
	return JoinPath(svc.Config.BasePath, p)
}

// API returns a backend client acting for the signed-in user.
func (svc *Service) API(r *http.Request) *backend.SessionClient {
	sess, _ := middleware.SessionFromContext(r.Context())
	id := ""
	if sess != nil {
		id = sess.ID
	}
	return svc.Backend.Session(session.Tokens{Store: svc.Sessions.Store, ID: id})
}

// JoinPath joins a base path and a route, keeping a single leading slash.
func JoinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	joined := path.Join("/", base, p)
	if strings.HasSuffix(p, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}
