package gallery

import (
	"sync"

	"github.com/lehigh-university-libraries/scangallery/internal/metrics"
	"github.com/lehigh-university-libraries/scangallery/internal/models"
)

// Revoker releases object URLs when images leave the gallery
type Revoker interface {
	RevokeObjectURL(src models.ImageSource)
}

// Gallery holds acquired image sources in insertion order.
// The list only grows through Append and only shrinks through Clear.
type Gallery struct {
	images  []models.ImageSource
	mu      sync.RWMutex
	revoker Revoker
	metrics *metrics.Metrics
}

func New(revoker Revoker, m *metrics.Metrics) *Gallery {
	return &Gallery{
		images:  []models.ImageSource{},
		revoker: revoker,
		metrics: m,
	}
}

// Append adds images after the current list, contiguous and in the given order.
func (g *Gallery) Append(images []models.ImageSource) {
	if len(images) == 0 {
		return
	}

	g.mu.Lock()
	g.images = append(g.images, images...)
	n := len(g.images)
	g.mu.Unlock()

	g.metrics.GallerySize(n)
}

// Clear empties the list and revokes every object URL it held.
func (g *Gallery) Clear() {
	g.mu.Lock()
	old := g.images
	g.images = []models.ImageSource{}
	g.mu.Unlock()

	if g.revoker != nil {
		for _, src := range old {
			g.revoker.RevokeObjectURL(src)
		}
	}
	g.metrics.GallerySize(0)
}

// Images returns a snapshot of the list
func (g *Gallery) Images() []models.ImageSource {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]models.ImageSource, len(g.images))
	copy(result, g.images)
	return result
}

func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.images)
}
