package utils

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

const containerSelector = "#pdf-print-container"

// browserSurface exposes the atomic blocks of the loaded protocol page to the
// reflow engine. Offsets are measured from the container top, which is also
// the top of the first page.
type browserSurface struct{}

type blockRect struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

type containerRect struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (browserSurface) Blocks(ctx context.Context) ([]int, error) {
	var ids []int
	js := `Array.from(document.querySelectorAll('` + containerSelector + ` [data-block]')).map(el => parseInt(el.dataset.block, 10))`
	if err := chromedp.Evaluate(js, &ids).Do(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func (browserSurface) Measure(ctx context.Context, id int) (float64, float64, error) {
	var r *blockRect
	js := fmt.Sprintf(`(() => {
		const c = document.querySelector('%s');
		const el = c && c.querySelector('[data-block="%d"]');
		if (!el) return null;
		const cr = c.getBoundingClientRect();
		const er = el.getBoundingClientRect();
		return {top: er.top - cr.top, height: er.height};
	})()`, containerSelector, id)
	if err := chromedp.Evaluate(js, &r).Do(ctx); err != nil {
		return 0, 0, err
	}
	if r == nil {
		return 0, 0, fmt.Errorf("block %d not found", id)
	}
	return r.Top, r.Height, nil
}

func (browserSurface) AddMarginTop(ctx context.Context, id int, px float64) error {
	var ok bool
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector('%s [data-block="%d"]');
		if (!el) return false;
		const current = parseFloat(getComputedStyle(el).marginTop) || 0;
		el.style.marginTop = (current + %f) + 'px';
		return true;
	})()`, containerSelector, id, px)
	if err := chromedp.Evaluate(js, &ok).Do(ctx); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("block %d not found", id)
	}
	return nil
}

// container returns the css pixel size of the whole print container after
// any margins added by reflow.
func (browserSurface) container(ctx context.Context) (width, height float64, err error) {
	var r *containerRect
	js := fmt.Sprintf(`(() => {
		const c = document.querySelector('%s');
		if (!c) return null;
		const b = c.getBoundingClientRect();
		return {width: b.width, height: Math.max(b.height, c.scrollHeight)};
	})()`, containerSelector)
	if err := chromedp.Evaluate(js, &r).Do(ctx); err != nil {
		return 0, 0, err
	}
	if r == nil {
		return 0, 0, fmt.Errorf("print container missing")
	}
	return r.Width, r.Height, nil
}
