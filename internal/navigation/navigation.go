package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/scangallery/internal/models"
)

// Menu keys, in header order
const (
	KeyLegacy  = "1"
	KeyBridge  = "2"
	KeyManaged = "3"
)

var ErrUnknownAction = errors.New("unknown navigation action")

// AppendFunc receives every acquired batch of images
type AppendFunc func([]models.ImageSource)

// Acquirer is one acquisition path
type Acquirer interface {
	Scan(ctx context.Context, onImages func([]models.ImageSource))
}

// AcquirerFunc adapts a function to Acquirer
type AcquirerFunc func(ctx context.Context, onImages func([]models.ImageSource))

func (f AcquirerFunc) Scan(ctx context.Context, onImages func([]models.ImageSource)) {
	f(ctx, onImages)
}

// Action is a menu entry bound to an acquisition path
type Action struct {
	Key      string
	Label    string
	Origin   models.Origin
	Acquirer Acquirer
}

// Navigator runs exactly one acquisition path per selection and funnels its
// output through a single append callback.
type Navigator struct {
	actions  map[string]Action
	order    []string
	appendFn AppendFunc
	wg       sync.WaitGroup
}

func New(appendFn AppendFunc, actions ...Action) *Navigator {
	n := &Navigator{
		actions:  make(map[string]Action, len(actions)),
		appendFn: appendFn,
	}
	for _, a := range actions {
		if _, exists := n.actions[a.Key]; !exists {
			n.order = append(n.order, a.Key)
		}
		n.actions[a.Key] = a
	}
	return n
}

// Actions returns the configured actions in menu order
func (n *Navigator) Actions() []Action {
	result := make([]Action, 0, len(n.order))
	for _, key := range n.order {
		result = append(result, n.actions[key])
	}
	return result
}

// Select runs the action for key and blocks until that path is done.
func (n *Navigator) Select(ctx context.Context, key string) error {
	action, ok := n.actions[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, key)
	}

	n.wg.Add(1)
	defer n.wg.Done()

	slog.Info("Acquisition started", "key", key, "origin", action.Origin)
	action.Acquirer.Scan(ctx, func(images []models.ImageSource) {
		slog.Info("Images acquired", "origin", action.Origin, "count", len(images))
		n.appendFn(images)
	})
	return nil
}

// Go runs Select on its own goroutine. The key is checked before returning.
func (n *Navigator) Go(ctx context.Context, key string) error {
	if _, ok := n.actions[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, key)
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.Select(ctx, key); err != nil {
			slog.Error("Acquisition failed", "key", key, "err", err)
		}
	}()
	return nil
}

// Wait blocks until every running acquisition has returned
func (n *Navigator) Wait() {
	n.wg.Wait()
}
