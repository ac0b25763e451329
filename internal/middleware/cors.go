package middleware

import "github.com/gofiber/fiber/v2"

// CORS headers attached to every chat response, including errors
const (
	ChatAllowOrigin  = "*"
	ChatAllowHeaders = "authorization, x-client-info, apikey, content-type"
	ChatAllowMethods = "POST, OPTIONS"
)

// ApplyChatCORS sets the permissive chat CORS headers on the response
func ApplyChatCORS(c *fiber.Ctx) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, ChatAllowOrigin)
	c.Set(fiber.HeaderAccessControlAllowHeaders, ChatAllowHeaders)
	c.Set(fiber.HeaderAccessControlAllowMethods, ChatAllowMethods)
}

// ensureCORS applies the chat CORS headers unless the cors middleware
// already answered for this request
func ensureCORS(c *fiber.Ctx) {
	if len(c.Response().Header.Peek(fiber.HeaderAccessControlAllowOrigin)) == 0 {
		ApplyChatCORS(c)
	}
}
