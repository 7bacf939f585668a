package scraper

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

const sliderHandleSel = `.slide-verify-slider-mask-item`

// clientRect mirrors getBoundingClientRect.
type clientRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// dragJitter returns the vertical noise applied to the drag so the pointer
// never travels a perfectly straight line. Uniform in [-2, 4).
func dragJitter() float64 {
	return -2 + rand.Float64()*6
}

// dragSlider performs a press-move-release on the captcha handle, moving it
// distance pixels to the right. Best effort humanization only; the sole
// requirement is that the horizontal displacement lands near distance.
func (s *Session) dragSlider(distance float64) error {
	var rect clientRect
	rectJS := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		const r = el.getBoundingClientRect();
		return {x: r.x, y: r.y, width: r.width, height: r.height};
	})()`, sliderHandleSel)
	if err := s.run(chromedp.Evaluate(rectJS, &rect)); err != nil {
		return fmt.Errorf("locating slider handle: %w", err)
	}

	startX := rect.X + rect.Width/2
	startY := rect.Y + rect.Height/2
	jitter := dragJitter()
	steps := 3 + rand.Intn(3)

	return s.run(chromedp.ActionFunc(func(ctx context.Context) error {
		err := input.DispatchMouseEvent(input.MousePressed, startX, startY).
			WithButton(input.Left).
			WithClickCount(1).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("pressing slider: %w", err)
		}

		for i := 1; i <= steps; i++ {
			frac := float64(i) / float64(steps)
			err := input.DispatchMouseEvent(input.MouseMoved, startX+distance*frac, startY+jitter*frac).
				WithButton(input.Left).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("moving slider: %w", err)
			}
		}

		err = input.DispatchMouseEvent(input.MouseReleased, startX+distance, startY+jitter).
			WithButton(input.Left).
			WithClickCount(1).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("releasing slider: %w", err)
		}
		return nil
	}))
}
