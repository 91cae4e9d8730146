package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SessionMiddleware 보드 세션 토큰 인증 미들웨어. WebSocket 업그레이드 요청은
// 헤더를 실을 수 없어 token 쿼리 파라미터도 허용한다.
func SessionMiddleware(jwtManager *JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := extractToken(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing session token",
			})
		}

		// 토큰 검증
		claims, err := jwtManager.ValidateSessionToken(tokenString)
		if err != nil {
			if err == ErrExpiredToken {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "session expired, rejoin the board",
					"code":  "TOKEN_EXPIRED",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		// 토큰의 보드와 경로의 보드가 일치해야 한다
		if boardID := c.Params("boardId"); boardID != "" && boardID != claims.BoardID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "token issued for a different board",
			})
		}

		// 참가자 정보를 컨텍스트에 저장
		c.Locals("clientID", claims.ClientID)
		c.Locals("boardID", claims.BoardID)
		c.Locals("nickname", claims.Nickname)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// OptionalSessionMiddleware 선택적 인증 미들웨어 (인증 실패해도 계속 진행)
func OptionalSessionMiddleware(jwtManager *JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenString := extractToken(c); tokenString != "" {
			claims, err := jwtManager.ValidateSessionToken(tokenString)
			if err == nil {
				c.Locals("clientID", claims.ClientID)
				c.Locals("boardID", claims.BoardID)
				c.Locals("nickname", claims.Nickname)
				c.Locals("claims", claims)
			}
		}

		return c.Next()
	}
}

// extractToken Authorization 헤더 → 쿠키 → 쿼리 파라미터 순으로 토큰 추출
func extractToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
		return ""
	}

	if cookie := c.Cookies("session_token"); cookie != "" {
		return cookie
	}

	return c.Query("token")
}
