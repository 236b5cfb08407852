package middleware

import (
	"net/http"
	"strings"

	"stablearb/pkg/crypto"
)

// Auth - middleware для аутентификации запросов по API-токену
//
// Процесс однопользовательский: оператору выдается один токен, в
// конфигурации хранится только его bcrypt-хеш (API_TOKEN_HASH).
// Токен передается в заголовке Authorization: Bearer <token>.
//
// Пустой хеш отключает аутентификацию (локальное развертывание за
// файрволом).
func Auth(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokenHash == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !crypto.CheckTokenMatch(token, tokenHash) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken извлекает токен из заголовка Authorization
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
