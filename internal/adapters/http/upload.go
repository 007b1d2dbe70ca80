package http

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Gather/internal/config"
)

// UploadHandler stores one multipart "file" and answers with the public
// locator that chat messages of kind "file" carry.
func UploadHandler(cfg config.UploadConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > cfg.MaxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxBytes)
		file, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
			return
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Str("dir", cfg.Dir).Msg("upload dir")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
			return
		}

		name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitizeFileName(file.Filename))
		if err := c.SaveUploadedFile(file, filepath.Join(cfg.Dir, name)); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Str("file", name).Msg("save upload")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
			return
		}
		log.Info().Str("module", "adapters.http").Str("file", name).Int64("size", file.Size).
			Str("client_token", c.GetString("client_token")).Msg("file uploaded")

		c.JSON(http.StatusOK, gin.H{"filePath": publicBase(c, cfg.PublicBaseURL) + "/uploads/" + name})
	}
}

func publicBase(c *gin.Context, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	clean = strings.TrimLeft(clean, ".")
	if clean == "" {
		return "file"
	}
	return clean
}
