package handler

import (
	_ "embed"

	"github.com/gofiber/fiber/v2"
)

//go:embed index.html
var indexPage []byte

// Index GET / - control page with the live feed
func Index(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexPage)
}
