package main

import (
	"os"

	"pictochat/backend/internal/app"
)

// @title           PictoChat API
// @version         1.0
// @description     Chat backend that answers text messages with a language model and image requests with an image generator.
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	os.Exit(app.Run())
}
