package session

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const DefaultCookieName = "_sid"

// Manager resolves the auth session cookie. Sessions are issued by the
// external identity layer; this service only reads them.
type Manager struct {
	cookieName string
}

func NewManager() *Manager {
	return &Manager{cookieName: DefaultCookieName}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	token, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}
