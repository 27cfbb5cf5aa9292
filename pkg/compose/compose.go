// Package compose runs the channel compositing pipeline: pick images out
// of a decoded project, extract their channel frames for one z slice,
// colorize each frame through its LUT, blend the layers over a black
// background, and write one PNG per image.
package compose

import (
	"errors"
	"fmt"
	"log"

	"github.com/easylens/easylens/pkg/lif"
	"github.com/easylens/easylens/pkg/lut"
	"github.com/easylens/easylens/pkg/render"
)

// Source is the decoder capability the compositor reads through. Any
// format reader exposing image counts, per-image channel/z metadata and
// plane access can drive a run; *lif.Project is the stock implementation.
type Source interface {
	NumImages() int
	NumChannels(img int) (int, error)
	NumZSlices(img int) (int, error)
	Frame(img, z, t, c int) (*lif.Frame, error)
}

var _ Source = (*lif.Project)(nil)

// Run composites every requested image index in turn. A missing channel
// truncates that image's extraction; an image yielding no frames at all
// is skipped with a warning. Everything else is fatal and aborts the run.
// Options must have been resolved.
func Run(src Source, lifPath string, opts Options) error {
	maps := make([]lut.Map, len(opts.LUTs))
	for i, name := range opts.LUTs {
		m, err := lut.Get(name)
		if err != nil {
			return err
		}
		maps[i] = m
	}
	background, err := lut.Get("bf")
	if err != nil {
		return err
	}

	indexes := opts.Indexes
	if len(indexes) == 0 {
		for i := 0; i < src.NumImages(); i++ {
			indexes = append(indexes, i)
		}
	}

	for _, i := range indexes {
		requested := opts.Channels
		if len(requested) == 0 {
			nc, err := src.NumChannels(i)
			if err != nil {
				return err
			}
			requested = make([]int, nc)
			for c := range requested {
				requested[c] = c
			}
		}

		frames, failed, err := extractChannels(src, i, opts.ZIndex, requested)
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			if failed >= 0 {
				log.Printf("warning: channel %d does not exist for image %d, skipping", failed, i)
			} else {
				log.Printf("warning: image %d has no channels, skipping", i)
			}
			continue
		}
		if err := checkShapes(frames); err != nil {
			return fmt.Errorf("image %d: %v", i, err)
		}

		if opts.Verbosity > 0 {
			nz, _ := src.NumZSlices(i)
			log.Printf("image %d: %dx%d, %d z slices, %d of %d channels extracted",
				i, frames[0].W, frames[0].H, nz, len(frames), len(requested))
			for k, f := range frames {
				log.Printf("image %d channel %d: %s", i, requested[k], f.Stats())
			}
		}

		canvas := render.NewCanvas(frames[0].W, frames[0].H)
		canvas.Fill(background, 0, 0, 1)

		alpha := layerAlpha(len(frames))
		for k, f := range frames {
			m := maps[k%len(maps)]
			if err := canvas.PaintLayer(f, m, opts.LowThreshold, opts.HighThreshold, alpha); err != nil {
				return fmt.Errorf("image %d channel %d: %v", i, requested[k], err)
			}
		}

		path := OutputPath(opts.Output, lifPath, i, opts.ZIndex, requested)
		if err := canvas.WritePNG(path, opts.Scale); err != nil {
			return fmt.Errorf("image %d: %v", i, err)
		}
		log.Printf("saved %s", path)
	}

	return nil
}

// extractChannels fetches the requested channels in order, stopping at
// the first one the source doesn't have. Channels in a LIF image are
// contiguous from 0, so a miss means everything after it is missing too.
// Returns the extracted prefix and, when truncated, the channel that
// stopped it (-1 otherwise).
func extractChannels(src Source, img, z int, channels []int) ([]*lif.Frame, int, error) {
	var frames []*lif.Frame
	for _, c := range channels {
		f, err := src.Frame(img, z, 0, c)
		if errors.Is(err, lif.ErrNoSuchChannel) {
			return frames, c, nil
		}
		if err != nil {
			return nil, c, err
		}
		frames = append(frames, f)
	}
	return frames, -1, nil
}

// checkShapes confirms every extracted frame matches the first one's
// dimensions. The format guarantees this; a decoder that breaks the
// guarantee would otherwise corrupt the composite silently.
func checkShapes(frames []*lif.Frame) error {
	w, h := frames[0].W, frames[0].H
	for k, f := range frames[1:] {
		if f.W != w || f.H != h {
			return fmt.Errorf("frame %d is %dx%d, frame 0 is %dx%d", k+1, f.W, f.H, w, h)
		}
	}
	return nil
}

// layerAlpha picks the blend alpha: a lone channel is drawn opaque, two
// or more get 0.5 each so overlaps visually mix.
func layerAlpha(n int) float64 {
	if n > 1 {
		return 0.5
	}
	return 1.0
}
