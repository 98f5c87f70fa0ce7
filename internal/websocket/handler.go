package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/mjimenez-dev/casita/internal/auth"
	"github.com/mjimenez-dev/casita/internal/model"
)

// Handle upgrades an authenticated request and runs it as a hub client.
// The route sits behind RequireAuth, so the auth context is always set.
func Handle(hub *Hub, allowedOrigins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns(allowedOrigins),
		})
		if err != nil {
			hub.logger.Warn("websocket accept failed", "error", err)
			return
		}

		client := NewClient(hub, conn, ac.FamilyID, ac.Role == model.RoleSuperadmin)
		client.Run(r.Context())
	}
}

// originPatterns strips schemes so origins configured as URLs match the
// host patterns coder/websocket expects.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		for _, prefix := range []string{"https://", "http://"} {
			if len(o) > len(prefix) && o[:len(prefix)] == prefix {
				o = o[len(prefix):]
				break
			}
		}
		patterns = append(patterns, o)
	}
	return patterns
}
