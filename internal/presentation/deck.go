package presentation

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"gocv.io/x/gocv"
)

// DefaultSlideCount is the number of slides in a deck directory.
const DefaultSlideCount = 9

// ErrDeckMissing is returned when the slide directory or one of its images is
// missing or unreadable.
var ErrDeckMissing = errors.New("slide deck missing")

// Deck is an ordered set of slide images loaded once at startup.
type Deck struct {
	dir    string
	slides []gocv.Mat
}

// SlidePath returns the image path for the 1-based slide n.
func SlidePath(dir string, n int) string {
	return filepath.Join(dir, strconv.Itoa(n)+".jpg")
}

// LoadDeck reads 1.jpg..count.jpg from dir. Every slide must exist and decode;
// a partial deck is an error. Progress is drawn to progress when non-nil.
func LoadDeck(dir string, count int, progress io.Writer) (*Deck, error) {
	if count <= 0 {
		count = DefaultSlideCount
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("images directory %s not found: %w", dir, ErrDeckMissing)
	}

	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(count,
		progressbar.OptionSetDescription("Loading slides"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
	)

	d := &Deck{dir: dir, slides: make([]gocv.Mat, 0, count)}
	for i := 1; i <= count; i++ {
		path := SlidePath(dir, i)
		if _, err := os.Stat(path); err != nil {
			d.Close()
			return nil, fmt.Errorf("%s not found: %w", path, ErrDeckMissing)
		}

		img := gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			img.Close()
			d.Close()
			return nil, fmt.Errorf("failed to load %s: %w", path, ErrDeckMissing)
		}

		d.slides = append(d.slides, img)
		if err := bar.Add(1); err != nil {
			log.Printf("Error drawing progress: %v", err)
		}
	}
	if err := bar.Finish(); err != nil {
		log.Printf("Error drawing progress: %v", err)
	}
	fmt.Fprintln(progress)

	log.Printf("Loaded %d slide images from %s", len(d.slides), dir)
	return d, nil
}

// NewDeck builds a deck from already decoded slides and takes ownership of them.
func NewDeck(slides []gocv.Mat) *Deck {
	return &Deck{slides: slides}
}

// Count returns the number of slides.
func (d *Deck) Count() int {
	if d == nil {
		return 0
	}
	return len(d.slides)
}

// Slide returns the image for the 1-based slide n, or nil when out of range.
// The deck keeps ownership of the returned Mat.
func (d *Deck) Slide(n int) *gocv.Mat {
	if d == nil || n < 1 || n > len(d.slides) {
		return nil
	}
	return &d.slides[n-1]
}

// Dir returns the directory the deck was loaded from.
func (d *Deck) Dir() string {
	return d.dir
}

// Close releases all slide images.
func (d *Deck) Close() {
	if d == nil {
		return
	}
	for i := range d.slides {
		d.slides[i].Close()
	}
	d.slides = nil
}
