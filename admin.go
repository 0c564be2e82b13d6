// admin.go - privacy-conscious visitor tracking and the admin dashboard
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const adminCookie = "admin_token"

type adminAuth struct {
	username string
	password string
	token    string
	salt     string // Use for IP hashing
	secure   bool
}

// newAdminAuth generates a fresh admin token and hashing salt per process.
func newAdminAuth(username, password string, secure bool) *adminAuth {
	a := &adminAuth{
		username: username,
		password: password,
		token:    generateAdminToken(),
		salt:     generateAdminToken(),
		secure:   secure,
	}

	log.Info().Msg("Admin access available at: /admin/login")
	if gin.Mode() == gin.DebugMode {
		log.Debug().Str("token", a.token).Msg("Admin token (dev only)")
	}
	log.Info().Msg("Privacy: Visitor tracking enabled with hashed IP addresses")
	return a
}

func generateAdminToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate admin token")
	}
	return hex.EncodeToString(bytes)
}

// Hash IP address for privacy compliance (consistent per IP)
func (a *adminAuth) hashIP(ip string) string {
	hash := sha256.New()
	hash.Write([]byte(ip + a.salt))
	return hex.EncodeToString(hash.Sum(nil))[:16]
}

func (a *adminAuth) checkCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	return userOK && passOK
}

// Middleware to check admin authentication
func (a *adminAuth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Privacy-conscious visitor tracking middleware
func (s *server) visitorTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only page views count; assets, API calls and admin pages are skipped.
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet ||
			path == s.cfg.AssetPath ||
			strings.HasPrefix(path, "/static/") ||
			strings.HasPrefix(path, "/profile/") ||
			strings.HasPrefix(path, "/admin/") ||
			strings.HasPrefix(path, "/favicon") ||
			strings.HasPrefix(path, "/privacy") {
			c.Next()
			return
		}

		// Respect Do Not Track header
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		hashedIP := s.admin.hashIP(c.ClientIP())
		userAgent := c.GetHeader("User-Agent")
		go func() {
			if err := s.store.RecordVisit(s.ctx, hashedIP, userAgent, path); err != nil {
				log.Error().Err(err).Msg("Error recording visitor")
			}
		}()
		c.Next()
	}
}

// Cleanup old visitor data for privacy compliance
func (s *server) cleanupOldVisitorData(ctx context.Context) {
	rowsDeleted, err := s.store.CleanupOldVisitors(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error cleaning up old visitor data")
		return
	}
	if rowsDeleted > 0 {
		log.Info().Int64("removed", rowsDeleted).Msg("Privacy cleanup: removed visitor records older than 12 months")
	}
}

// Setup all admin routes
func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title": "Privacy Policy",
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		if !s.admin.checkCredentials(username, password) {
			log.Warn().Str("client", s.admin.hashIP(c.ClientIP())).Msg("Failed admin login attempt")
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
				"title": "Admin Login",
				"error": "Invalid credentials",
			})
			return
		}

		// Secure cookie (24 hours)
		c.SetCookie(adminCookie, s.admin.token, 3600*24, "/admin", "", s.admin.secure, true)
		log.Info().Str("client", s.admin.hashIP(c.ClientIP())).Msg("Admin login successful")
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", s.admin.secure, true)
		log.Info().Str("client", s.admin.hashIP(c.ClientIP())).Msg("Admin logout")
		c.Redirect(http.StatusFound, "/admin/login")
	})

	adminGroup := r.Group("/admin")
	adminGroup.Use(s.admin.middleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Msg("Error loading admin stats")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}

		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats":          stats,
			"activeSessions": s.sessions.len(),
		})
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/visitors", func(c *gin.Context) {
		visitors, err := s.store.RecentVisitors(c.Request.Context(), 200)
		if err != nil {
			log.Error().Err(err).Msg("Error loading visitors")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load visitors",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"visitors": visitors,
		})
	})

	adminGroup.POST("/privacy/cleanup", func(c *gin.Context) {
		go s.cleanupOldVisitorData(s.ctx)
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup initiated"})
	})

	// Admin statistics export (for backups or analysis)
	adminGroup.GET("/export/stats", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		log.Info().Str("client", s.admin.hashIP(c.ClientIP())).Msg("Admin stats exported")
		c.JSON(http.StatusOK, stats)
	})
}
