package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"gocv.io/x/gocv"
)

// SlideSource gives read access to the loaded deck.
type SlideSource interface {
	Count() int
	Slide(n int) *gocv.Mat
}

// SlideHandler serves GET /api/slides/{n} as a JPEG image.
type SlideHandler struct {
	slides SlideSource
}

// NewSlideHandler creates a SlideHandler for slides.
func NewSlideHandler(slides SlideSource) *SlideHandler {
	return &SlideHandler{slides: slides}
}

// ServeHTTP encodes the 1-based slide n.
func (h *SlideHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil || n < 1 || n > h.slides.Count() {
		writeError(w, http.StatusNotFound, "Slide not found")
		return
	}

	slide := h.slides.Slide(n)
	if slide == nil || slide.Empty() {
		writeError(w, http.StatusNotFound, "Slide not found")
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *slide)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode slide")
		return
	}
	defer buf.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.GetBytes())
}
