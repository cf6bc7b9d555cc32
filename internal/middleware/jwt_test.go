package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret, userID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   "client@example.com",
		"role":    role,
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signature token: %v", err)
	}
	return signed
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "role": c.GetString("role")})
	})
	r.GET("/pro", AuthRequired(), ProfessionalOnly(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	t.Run("Given un secret chargé après l'initialisation du paquet When une requête arrive Then le token est validé", func(t *testing.T) {
		// Le routeur (et donc le middleware) existe avant que le secret
		// ne soit posé, comme au démarrage où le .env se charge dans main
		r := newAuthRouter()
		t.Setenv("JWT_SECRET", "s3cret-du-env")

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "s3cret-du-env", "client-1", "client"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("code = %d, attendu 200: %s", w.Code, w.Body.String())
		}
	})

	t.Run("Given un token signé avec un autre secret When une requête arrive Then 401", func(t *testing.T) {
		r := newAuthRouter()
		t.Setenv("JWT_SECRET", "bon-secret")

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "mauvais-secret", "client-1", "client"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("code = %d, attendu 401", w.Code)
		}
	})

	t.Run("Given aucun token When une requête arrive Then 401", func(t *testing.T) {
		r := newAuthRouter()
		t.Setenv("JWT_SECRET", "s3cret")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("code = %d, attendu 401", w.Code)
		}
	})
}

func TestProfessionalOnly(t *testing.T) {
	t.Run("Given un token cliente When elle appelle une route pro Then 403", func(t *testing.T) {
		r := newAuthRouter()
		t.Setenv("JWT_SECRET", "s3cret")

		req := httptest.NewRequest(http.MethodGet, "/pro", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "s3cret", "client-1", "client"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("code = %d, attendu 403", w.Code)
		}
	})

	t.Run("Given un token pro When elle appelle une route pro Then 200", func(t *testing.T) {
		r := newAuthRouter()
		t.Setenv("JWT_SECRET", "s3cret")

		req := httptest.NewRequest(http.MethodGet, "/pro", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "s3cret", "pro-1", "professional"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("code = %d, attendu 200", w.Code)
		}
	})
}
