package embedui

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

//go:embed static/**
var embedFS embed.FS

// RegisterStaticHandlers serves the embedded stylesheets and scripts under prefix.
func RegisterStaticHandlers(router *gin.Engine, prefix string) {
	// Create a sub-filesystem that starts from the 'static' directory.
	staticFS, err := fs.Sub(embedFS, "static")
	if err != nil {
		panic("embedui: failed to create sub filesystem: " + err.Error())
	}
	fileServer := http.StripPrefix(prefix, http.FileServer(http.FS(staticFS)))

	handler := func(c *gin.Context) {
		// Directory listings are not served.
		if strings.HasSuffix(c.Request.URL.Path, "/") {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Header("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
	router.GET(prefix+"/*filepath", handler)
	router.HEAD(prefix+"/*filepath", handler)
}
