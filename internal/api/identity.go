package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// headerActorID carries the caller's actor id. Authentication itself is
// owned by an upstream gateway; the engine trusts this header.
const headerActorID = "X-Actor-ID"

// actorID extracts the calling actor's id from the request headers.
// Empty means the caller sent no identity. The value is copied out of
// fasthttp's reusable request buffer so it stays valid after the
// request completes.
func actorID(c *fiber.Ctx) string {
	return utils.CopyString(c.Get(headerActorID))
}
