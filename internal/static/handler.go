package static

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evangambit/Gamgee/internal/metrics"
)

// Handler serves files under a Resolver's root with single byte-range
// support for media seeking.
type Handler struct {
	resolver *Resolver
	logger   *slog.Logger
}

func NewHandler(resolver *Resolver, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{resolver: resolver, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := h.resolver.Resolve(r.URL.Path)

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		// Directory listings, index.html and 404s.
		http.ServeFile(w, r, path)
		return
	}

	header := r.Header.Get("Range")
	if header == "" {
		h.serveFull(w, r, path, info)
		return
	}

	requested, err := ParseRange(header)
	if err != nil {
		metrics.ObserveRange(metrics.RangeMalformed)
		h.logger.Debug("ignoring range header", "path", r.URL.Path, "range", header, "err", err)
		h.serveFull(w, r, path, info)
		return
	}

	spec, err := requested.Resolve(info.Size())
	if errors.Is(err, ErrRangeNotSatisfiable) {
		metrics.ObserveRange(metrics.RangeUnsatisfiable)
		w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(info.Size(), 10))
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	metrics.ObserveRange(metrics.RangePartial)
	h.servePartial(w, r, path, spec)
}

// serveFull sends the whole file as if no Range header had been sent.
func (h *Handler) serveFull(w http.ResponseWriter, r *http.Request, path string, info os.FileInfo) {
	f, err := os.Open(path)
	if err != nil {
		h.logger.Warn("open file", "path", path, "err", err)
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	full := r.Clone(r.Context())
	full.Header.Del("Range")
	full.Header.Del("If-Range")

	w.Header().Set("Content-Type", contentType(path))
	http.ServeContent(w, full, info.Name(), info.ModTime(), f)
}

func (h *Handler) servePartial(w http.ResponseWriter, r *http.Request, path string, spec RangeSpec) {
	body, err := openRange(path, spec)
	if err != nil {
		h.logger.Warn("open range", "path", path, "err", err)
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	}
	defer body.Close()

	header := w.Header()
	header.Set("Content-Type", contentType(path))
	header.Set("Content-Length", strconv.FormatInt(spec.Length(), 10))
	header.Set("Content-Range", spec.ContentRange())
	header.Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusPartialContent)

	if r.Method == http.MethodHead {
		return
	}

	if _, err := io.Copy(w, body); err != nil {
		// Usually the player seeking away and dropping the connection.
		h.logger.Debug("range copy interrupted", "path", r.URL.Path, "err", err)
	}
}

// mediaTypes covers formats missing from Go's builtin table when the host
// has no mime.types file.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
}

func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ctype := mime.TypeByExtension(ext); ctype != "" {
		return ctype
	}
	if ctype, ok := mediaTypes[ext]; ok {
		return ctype
	}
	return "application/octet-stream"
}
