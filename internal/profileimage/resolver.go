// Package profileimage decides which picture the portfolio header shows:
// an uploaded image, the static profile asset, or the placeholder glyph.
package profileimage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

// SourceKind identifies where a resolved image comes from.
type SourceKind string

const (
	SourceUploaded    SourceKind = "uploaded"
	SourceStatic      SourceKind = "static"
	SourcePlaceholder SourceKind = "placeholder"
)

// Source is the single image source to render.
// URL is empty for the placeholder.
type Source struct {
	Kind SourceKind `json:"kind"`
	URL  string     `json:"src,omitempty"`
}

// IsPlaceholder reports whether the placeholder glyph should be drawn.
func (s Source) IsPlaceholder() bool {
	return s.Kind == SourcePlaceholder
}

// ErrUploadRead is returned when a selected file cannot be read.
var ErrUploadRead = errors.New("profile image upload could not be read")

// Resolver holds the image state of one page session.
type Resolver struct {
	assetPath string
	prober    Prober

	mu        sync.RWMutex
	uploaded  string
	state     ProbeState
	lastError error
	settled   chan struct{}

	probeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewResolver creates a resolver for assetPath and starts its one probe.
// A nil prober leaves the asset unavailable.
func NewResolver(ctx context.Context, assetPath string, prober Prober) *Resolver {
	ctx, cancel := context.WithCancel(ctx)
	r := &Resolver{
		assetPath: assetPath,
		prober:    prober,
		state:     ProbePending,
		settled:   make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	go r.ProbeStaticAsset()
	return r
}

// ProbeStaticAsset checks once whether the static asset exists.
// Later calls do nothing.
func (r *Resolver) ProbeStaticAsset() {
	r.probeOnce.Do(func() {
		if r.prober == nil {
			r.settle(ProbeUnavailable)
			return
		}
		err := r.prober.Probe(r.ctx, r.assetPath)
		switch {
		case err == nil:
			r.settle(ProbeAvailable)
		case r.ctx.Err() != nil:
			log.Debug().Str("asset", r.assetPath).Msg("Static asset probe cancelled")
		default:
			log.Debug().Err(err).Str("asset", r.assetPath).Msg("Static asset not available")
			r.settle(ProbeUnavailable)
		}
	})
}

// settle applies a probe result; only a pending state accepts one.
func (r *Resolver) settle(s ProbeState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != ProbePending {
		return
	}
	r.state = s
	close(r.settled)
}

// OnFileSelected reads file and stores it as the uploaded image.
// A nil file means the picker was cancelled and changes nothing.
func (r *Resolver) OnFileSelected(ctx context.Context, file io.Reader) error {
	if file == nil {
		return nil
	}
	uri, err := EncodeDataURI(ctx, file)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrUploadRead, err)
		r.mu.Lock()
		r.lastError = err
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	r.uploaded = uri
	r.lastError = nil
	r.mu.Unlock()
	return nil
}

// OnStaticAssetLoadError marks the static asset unusable after it failed
// to render.
func (r *Resolver) OnStaticAssetLoadError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == ProbePending {
		close(r.settled)
	}
	r.state = ProbeUnavailable
}

// Resolve returns the image to render. Uploads win, then the static asset.
func (r *Resolver) Resolve() Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch {
	case r.uploaded != "":
		return Source{Kind: SourceUploaded, URL: r.uploaded}
	case r.state == ProbeAvailable:
		return Source{Kind: SourceStatic, URL: r.assetPath}
	default:
		return Source{Kind: SourcePlaceholder}
	}
}

// State returns the current probe state.
func (r *Resolver) State() ProbeState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// LastUploadError returns the error of the latest failed upload, or nil
// once an upload succeeds.
func (r *Resolver) LastUploadError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastError
}

// TakeUploadError returns the error of the latest failed upload and
// clears it, so it is reported once.
func (r *Resolver) TakeUploadError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.lastError
	r.lastError = nil
	return err
}

// Wait blocks until the probe has settled or ctx is done.
func (r *Resolver) Wait(ctx context.Context) (ProbeState, error) {
	select {
	case <-r.settled:
		return r.State(), nil
	case <-ctx.Done():
		return r.State(), ctx.Err()
	}
}

// Close cancels a probe still in flight.
func (r *Resolver) Close() {
	r.cancel()
}
