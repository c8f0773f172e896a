package ocr

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/sunshineplan/imgconv"
)

var errEmptyHistogram = errors.New("otsu: image has no pixels")

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// autoContrast stretches the intensity range so the darkest pixel maps to 0
// and the lightest to 255.
func autoContrast(g *image.Gray) *image.Gray {
	lo, hi := uint8(255), uint8(0)
	for _, v := range g.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := image.NewGray(g.Rect)
	if hi <= lo {
		copy(out.Pix, g.Pix)
		return out
	}
	var lut [256]uint8
	span := int(hi) - int(lo)
	for v := int(lo); v <= int(hi); v++ {
		lut[v] = uint8((v - int(lo)) * 255 / span)
	}
	for i, v := range g.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// median3 applies a 3x3 median filter, replicating edge pixels.
func median3(g *image.Gray) *image.Gray {
	b := g.Rect
	out := image.NewGray(b)
	w, h := b.Dx(), b.Dy()
	var win [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			k := 0
			for dy := -1; dy <= 1; dy++ {
				yy := clamp(y+dy, 0, h-1)
				for dx := -1; dx <= 1; dx++ {
					xx := clamp(x+dx, 0, w-1)
					win[k] = g.Pix[yy*g.Stride+xx]
					k++
				}
			}
			// insertion sort; the window is tiny
			for i := 1; i < 9; i++ {
				for j := i; j > 0 && win[j-1] > win[j]; j-- {
					win[j-1], win[j] = win[j], win[j-1]
				}
			}
			out.Pix[y*out.Stride+x] = win[4]
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// upscale doubles both sides when either is below min.
func upscale(img image.Image, min int) image.Image {
	b := img.Bounds()
	if b.Dx() >= min && b.Dy() >= min {
		return img
	}
	return imgconv.Resize(img, &imgconv.ResizeOption{
		Width:  b.Dx() * 2,
		Height: b.Dy() * 2,
	})
}

// rotate turns img counter-clockwise by angle degrees on an expanded white canvas.
func rotate(img image.Image, angle float64) image.Image {
	return imaging.Rotate(img, angle, color.White)
}

// otsuThreshold returns the gray level maximising the between-class
// variance wB*wF*(mB-mF)^2 over the 256-bin histogram.
func otsuThreshold(g *image.Gray) (uint8, error) {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}
	total := len(g.Pix)
	if total == 0 {
		return 0, errEmptyHistogram
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}

	var (
		sumB     float64
		wB       int
		best     uint8
		maxInter float64
	)
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > maxInter {
			maxInter = between
			best = uint8(t)
		}
	}
	return best, nil
}

// binarize maps pixels above t to white and the rest to black.
func binarize(g *image.Gray, t uint8) *image.Gray {
	out := image.NewGray(g.Rect)
	for i, v := range g.Pix {
		if v > t {
			out.Pix[i] = 255
		}
	}
	return out
}
