package main

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/leepro/portfolio/internal/logging"
	"github.com/leepro/portfolio/internal/profileimage"
	"github.com/leepro/portfolio/internal/store"
)

//go:embed templates/*.html static
var assetsFS embed.FS

type server struct {
	cfg      Config
	store    *store.Store
	sessions *sessionRegistry
	admin    *adminAuth
	// openUpload opens a received multipart file.
	openUpload func(*multipart.FileHeader) (multipart.File, error)
	ctx        context.Context
	cancel     context.CancelFunc
}

func newServer(cfg Config, st *store.Store, prober profileimage.Prober) *server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &server{
		cfg:   cfg,
		store: st,
		admin: newAdminAuth(cfg.AdminUsername, cfg.AdminPassword, cfg.SecureCookies),
		openUpload: func(h *multipart.FileHeader) (multipart.File, error) {
			return h.Open()
		},
		ctx:    ctx,
		cancel: cancel,
	}
	s.sessions = newSessionRegistry(sessionLimits{
		TTL:        cfg.SessionTTL,
		FirstVisit: cfg.FirstVisitTTL,
		Max:        cfg.MaxSessions,
	}, cfg.SecureCookies, func() *profileimage.Resolver {
		r := profileimage.NewResolver(ctx, cfg.AssetPath, prober)
		go s.recordProbe(r)
		return r
	})
	return s
}

// recordProbe stores the outcome of a session's probe once it settles.
func (s *server) recordProbe(r *profileimage.Resolver) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ProbeTimeout+time.Second)
	defer cancel()
	state, err := r.Wait(ctx)
	if err != nil {
		return
	}
	kind := store.EventProbeUnavailable
	if state == profileimage.ProbeAvailable {
		kind = store.EventProbeAvailable
	}
	s.recordEvent(store.ImageEvent{Kind: kind})
}

func (s *server) recordEvent(ev store.ImageEvent) {
	if err := s.store.RecordImageEvent(s.ctx, ev); err != nil {
		log.Error().Err(err).Str("kind", ev.Kind).Msg("Error recording image event")
	}
}

func (s *server) close() {
	s.sessions.close()
	s.cancel()
}

func (s *server) routes() (*gin.Engine, error) {
	tmpl, err := template.ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(assetsFS, "static")
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger())
	r.SetHTMLTemplate(tmpl)
	r.Use(s.visitorTrackingMiddleware())

	r.StaticFS("/static", http.FS(static))
	r.StaticFile(s.cfg.AssetPath, filepath.Join(s.cfg.PublicDir, filepath.FromSlash(path.Clean(s.cfg.AssetPath))))

	r.GET("/", s.handleIndex)

	profile := r.Group("/profile")
	profile.GET("/image", s.handleProfileImage)
	profile.POST("/upload", s.handleUpload)
	profile.POST("/image-error", s.handleImageError)

	s.setupAdminRoutes(r)
	return r, nil
}

// imageView is the resolved profile image as the template needs it.
type imageView struct {
	Kind        profileimage.SourceKind
	Src         template.URL
	Placeholder bool
}

func newImageView(src profileimage.Source) imageView {
	// Data URIs would be rewritten to #ZgotmplZ as plain strings.
	return imageView{
		Kind:        src.Kind,
		Src:         template.URL(src.URL),
		Placeholder: src.IsPlaceholder(),
	}
}

// Home page route
func (s *server) handleIndex(c *gin.Context) {
	res := s.sessions.get(c)

	var uploadError string
	if res.TakeUploadError() != nil {
		uploadError = "사진을 읽을 수 없습니다. 다른 파일을 선택해 주세요."
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"ownerName":     OwnerName,
		"ownerInitials": OwnerInitials,
		"ownerKorean":   OwnerKorean,
		"position":      Position,
		"email":         Email,
		"phone":         Phone,
		"introduce":     Introduce,
		"uploadHint":    UploadHint,
		"placeholder":   PlaceholderGlyph,
		"skills":        Skills,
		"image":         newImageView(res.Resolve()),
		"probePending":  res.State() == profileimage.ProbePending,
		"uploadError":   uploadError,
	})
}

func profileJSON(res *profileimage.Resolver) gin.H {
	src := res.Resolve()
	return gin.H{
		"kind":  src.Kind,
		"src":   src.URL,
		"probe": res.State(),
	}
}

// handleProfileImage reports the resolved image. With ?wait=1 it first
// waits for the probe to settle, bounded by the probe timeout.
func (s *server) handleProfileImage(c *gin.Context) {
	res, ok := s.sessions.lookup(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session, load the page first"})
		return
	}
	if c.Query("wait") == "1" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ProbeTimeout)
		defer cancel()
		res.Wait(ctx)
	}
	c.JSON(http.StatusOK, profileJSON(res))
}

func (s *server) handleUpload(c *gin.Context) {
	res, ok := s.sessions.lookup(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session, load the page first"})
		return
	}

	header, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		// Picker was cancelled.
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected a multipart form with a photo field"})
		return
	}

	var uploadErr error
	file, err := s.openUpload(header)
	if err != nil {
		uploadErr = res.OnFileSelected(c.Request.Context(), errReader{err})
	} else {
		uploadErr = res.OnFileSelected(c.Request.Context(), file)
		file.Close()
	}
	if uploadErr != nil {
		log.Warn().Err(uploadErr).Str("filename", header.Filename).Msg("Profile upload failed")
		s.recordEvent(store.ImageEvent{Kind: store.EventUploadFailed})
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Sorry, the selected file could not be read. Please choose another one.",
		})
		return
	}

	src := res.Resolve()
	s.recordEvent(describeUpload(src.URL, header.Size))
	log.Info().Str("filename", header.Filename).Int64("bytes", header.Size).Msg("Profile image uploaded")
	c.JSON(http.StatusOK, profileJSON(res))
}

// describeUpload builds the upload event. Only the header facts are kept.
func describeUpload(uri string, size int64) store.ImageEvent {
	ev := store.ImageEvent{Kind: store.EventUpload, Bytes: size, Format: "unknown"}
	_, data, err := profileimage.DecodeDataURI(uri)
	if err != nil {
		return ev
	}
	info, err := profileimage.Describe(data)
	if err != nil {
		log.Debug().Err(err).Msg("Uploaded file has no readable image header")
	}
	ev.Format, ev.Width, ev.Height = info.Format, info.Width, info.Height
	return ev
}

// handleImageError is the beacon sent by the page when the static asset
// fails to render.
func (s *server) handleImageError(c *gin.Context) {
	res, ok := s.sessions.lookup(c)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	res.OnStaticAssetLoadError()
	s.recordEvent(store.ImageEvent{Kind: store.EventLoadError})
	c.Status(http.StatusNoContent)
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
