package imageop

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func builtinSpecs() []*Spec {
	return []*Spec{
		{
			Name:  "resize",
			Label: "尺寸调整",
			Params: []ParamSpec{
				{Name: "width", Kind: KindInt, Min: 0, Max: 10000},
				{Name: "height", Kind: KindInt, Min: 0, Max: 10000},
				{Name: "keep_aspect", Kind: KindBool},
			},
			Transform: opResize,
		},
		{
			Name:  "crop",
			Label: "裁剪",
			Params: []ParamSpec{
				{Name: "x", Kind: KindInt, Min: 0, Max: 10000},
				{Name: "y", Kind: KindInt, Min: 0, Max: 10000},
				{Name: "width", Kind: KindInt, Min: 1, Max: 10000},
				{Name: "height", Kind: KindInt, Min: 1, Max: 10000},
			},
			Transform: opCrop,
		},
		{
			Name:  "filter",
			Label: "滤镜",
			Params: []ParamSpec{
				{Name: "filter_type", Kind: KindString, Enum: []string{"grayscale", "blur", "sharpen", "invert", "sepia"}},
				{Name: "intensity", Kind: KindFloat, Min: 0, Max: 10},
			},
			Transform: opFilter,
		},
		{
			Name:  "watermark",
			Label: "文字水印",
			Params: []ParamSpec{
				{Name: "text", Kind: KindString},
				{Name: "position", Kind: KindString, Enum: []string{"top-left", "top-right", "bottom-left", "bottom-right", "center"}},
				{Name: "opacity", Kind: KindFloat, Min: 0, Max: 1},
			},
			Transform: opWatermark,
		},
		{
			Name:  "blend",
			Label: "图片混合",
			Params: []ParamSpec{
				{Name: "opacity", Kind: KindFloat, Min: 0, Max: 1},
			},
			NeedsSecondary: true,
			SecondaryField: "secondary_image",
			Transform:      opBlend,
		},
		{
			Name:           "mask",
			Label:          "蒙版",
			NeedsSecondary: true,
			SecondaryField: "secondary_image",
			Transform:      opMask,
		},
		{
			Name:  "stitch",
			Label: "拼接",
			Params: []ParamSpec{
				{Name: "direction", Kind: KindString, Enum: []string{"horizontal", "vertical"}},
			},
			NeedsSecondary: true,
			SecondaryField: "secondary_image",
			Transform:      opStitch,
		},
		{
			Name:  "format",
			Label: "格式转换",
			Params: []ParamSpec{
				{Name: "format", Kind: KindString, Enum: []string{"jpeg", "jpg", "png", "gif", "bmp", "tiff"}},
				{Name: "quality", Kind: KindInt, Min: 1, Max: 100},
			},
			Transform: opFormat,
		},
		{
			Name:  "gif",
			Label: "GIF 合成",
			Params: []ParamSpec{
				{Name: "delay", Kind: KindInt, Min: 1, Max: 300},
			},
			SecondaryField: "secondary_image",
			Transform:      opGIF,
		},
		{
			Name:  "noise",
			Label: "噪点",
			Params: []ParamSpec{
				{Name: "amount", Kind: KindFloat, Min: 0, Max: 1},
				{Name: "seed", Kind: KindInt, Min: 0, Max: math.MaxInt32},
			},
			Transform: opNoise,
		},
		{
			Name:  "pixelate",
			Label: "像素化",
			Params: []ParamSpec{
				{Name: "block_size", Kind: KindInt, Min: 2, Max: 100},
			},
			Transform: opPixelate,
		},
		{
			Name:  "color",
			Label: "色彩调整",
			Params: []ParamSpec{
				{Name: "brightness", Kind: KindFloat, Min: -100, Max: 100},
				{Name: "contrast", Kind: KindFloat, Min: -100, Max: 100},
				{Name: "saturation", Kind: KindFloat, Min: -100, Max: 100},
			},
			Transform: opColor,
		},
		{
			Name:  "text",
			Label: "文字叠加",
			Params: []ParamSpec{
				{Name: "text", Kind: KindString},
				{Name: "x", Kind: KindInt, Min: 0, Max: 10000},
				{Name: "y", Kind: KindInt, Min: 0, Max: 10000},
				{Name: "color", Kind: KindString},
			},
			Transform: opText,
		},
		{
			Name:  "annotation",
			Label: "标注框",
			Params: []ParamSpec{
				{Name: "x", Kind: KindInt, Min: 0, Max: 10000},
				{Name: "y", Kind: KindInt, Min: 0, Max: 10000},
				{Name: "width", Kind: KindInt, Min: 1, Max: 10000},
				{Name: "height", Kind: KindInt, Min: 1, Max: 10000},
				{Name: "color", Kind: KindString},
				{Name: "thickness", Kind: KindInt, Min: 1, Max: 50},
			},
			Transform: opAnnotation,
		},
		{
			Name:  "transform",
			Label: "旋转翻转",
			Params: []ParamSpec{
				{Name: "rotate", Kind: KindFloat, Min: -360, Max: 360},
				{Name: "flip", Kind: KindString, Enum: []string{"none", "horizontal", "vertical"}},
			},
			Transform: opTransform,
		},
		{
			Name:  "perspective",
			Label: "透视变形",
			Params: []ParamSpec{
				{Name: "skew", Kind: KindFloat, Min: -45, Max: 45},
			},
			Transform: opPerspective,
		},
		{
			Name:  "canvas",
			Label: "画布扩展",
			Params: []ParamSpec{
				{Name: "width", Kind: KindInt, Min: 1, Max: 10000},
				{Name: "height", Kind: KindInt, Min: 1, Max: 10000},
				{Name: "background", Kind: KindString},
			},
			Transform: opCanvas,
		},
		{
			Name:  "overlay",
			Label: "图片叠加",
			Params: []ParamSpec{
				{Name: "x", Kind: KindInt, Min: 0, Max: 10000},
				{Name: "y", Kind: KindInt, Min: 0, Max: 10000},
				{Name: "opacity", Kind: KindFloat, Min: 0, Max: 1},
			},
			NeedsSecondary: true,
			SecondaryField: "watermark_image",
			Transform:      opOverlay,
		},
		{
			Name:  "enhance",
			Label: "增强",
			Params: []ParamSpec{
				{Name: "sharpen", Kind: KindFloat, Min: 0, Max: 10},
				{Name: "contrast", Kind: KindFloat, Min: 0, Max: 100},
			},
			Transform: opEnhance,
		},
	}
}

func opResize(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	width := p.Int("width", 0)
	height := p.Int("height", 0)
	if width == 0 && height == 0 {
		return nil, "", badParam("width", "width 与 height 至少提供一个")
	}

	var out image.Image
	if p.Bool("keep_aspect", true) && width > 0 && height > 0 {
		out = imaging.Fit(img, width, height, imaging.Lanczos)
	} else {
		out = imaging.Resize(img, width, height, imaging.Lanczos)
	}
	return encode(out, format, 90)
}

func opCrop(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	x := p.Int("x", 0)
	y := p.Int("y", 0)
	width := p.Int("width", img.Bounds().Dx()-x)
	height := p.Int("height", img.Bounds().Dy()-y)

	rect := image.Rect(x, y, x+width, y+height).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, "", badParam("width", "裁剪区域超出图片范围")
	}

	return encode(imaging.Crop(img, rect), format, 90)
}

func opFilter(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	intensity := p.Float("intensity", 1.0)
	var out image.Image
	switch p.Str("filter_type", "grayscale") {
	case "grayscale":
		out = imaging.Grayscale(img)
	case "blur":
		out = imaging.Blur(img, math.Max(intensity, 0.1))
	case "sharpen":
		out = imaging.Sharpen(img, math.Max(intensity, 0.1))
	case "invert":
		out = imaging.Invert(img)
	case "sepia":
		out = imaging.AdjustSaturation(imaging.AdjustContrast(imaging.Grayscale(img), -10), 30)
	default:
		out = img
	}
	return encode(out, format, 90)
}

func opWatermark(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	text := p.Str("text", "processed")
	opacity := p.Float("opacity", 0.6)
	alpha := uint8(math.Round(opacity * 255))

	canvas := imaging.Clone(img)
	textWidth := basicfont.Face7x13.Advance * len(text)
	x, y := watermarkAnchor(p.Str("position", "bottom-right"), canvas.Bounds(), textWidth)
	drawText(canvas, text, x, y, color.NRGBA{R: 255, G: 255, B: 255, A: alpha})

	return encode(canvas, format, 90)
}

func watermarkAnchor(position string, bounds image.Rectangle, textWidth int) (int, int) {
	const margin = 10
	switch position {
	case "top-left":
		return margin, margin + basicfont.Face7x13.Ascent
	case "top-right":
		return bounds.Dx() - textWidth - margin, margin + basicfont.Face7x13.Ascent
	case "bottom-left":
		return margin, bounds.Dy() - margin
	case "center":
		return (bounds.Dx() - textWidth) / 2, bounds.Dy() / 2
	default: // bottom-right
		return bounds.Dx() - textWidth - margin, bounds.Dy() - margin
	}
}

func opBlend(p Params, primary, secondary []byte) ([]byte, string, error) {
	base, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}
	over, _, err := decode(secondary)
	if err != nil {
		return nil, "", err
	}

	resized := imaging.Resize(over, base.Bounds().Dx(), base.Bounds().Dy(), imaging.Lanczos)
	out := imaging.Overlay(base, resized, image.Pt(0, 0), p.Float("opacity", 0.5))
	return encode(out, format, 90)
}

func opMask(_ Params, primary, secondary []byte) ([]byte, string, error) {
	base, _, err := decode(primary)
	if err != nil {
		return nil, "", err
	}
	maskImg, _, err := decode(secondary)
	if err != nil {
		return nil, "", err
	}

	bounds := base.Bounds()
	mask := imaging.Grayscale(imaging.Resize(maskImg, bounds.Dx(), bounds.Dy(), imaging.Lanczos))

	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, _ := base.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum, _, _, _ := mask.At(x, y).RGBA()
			out.SetNRGBA(x, y, color.NRGBA{
				R: uint8(r >> 8),
				G: uint8(g >> 8),
				B: uint8(b >> 8),
				A: uint8(lum >> 8),
			})
		}
	}
	// 蒙版结果必须保留透明通道
	return encode(out, "png", 90)
}

func opStitch(p Params, primary, secondary []byte) ([]byte, string, error) {
	first, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}
	second, _, err := decode(secondary)
	if err != nil {
		return nil, "", err
	}

	var canvas *image.NRGBA
	if p.Str("direction", "horizontal") == "vertical" {
		width := maxInt(first.Bounds().Dx(), second.Bounds().Dx())
		canvas = imaging.New(width, first.Bounds().Dy()+second.Bounds().Dy(), color.NRGBA{})
		canvas = imaging.Paste(canvas, first, image.Pt(0, 0))
		canvas = imaging.Paste(canvas, second, image.Pt(0, first.Bounds().Dy()))
	} else {
		height := maxInt(first.Bounds().Dy(), second.Bounds().Dy())
		canvas = imaging.New(first.Bounds().Dx()+second.Bounds().Dx(), height, color.NRGBA{})
		canvas = imaging.Paste(canvas, first, image.Pt(0, 0))
		canvas = imaging.Paste(canvas, second, image.Pt(first.Bounds().Dx(), 0))
	}
	return encode(canvas, format, 90)
}

func opFormat(p Params, primary, _ []byte) ([]byte, string, error) {
	img, _, err := decode(primary)
	if err != nil {
		return nil, "", err
	}
	return encode(img, p.Str("format", "jpeg"), p.Int("quality", 90))
}

func opGIF(p Params, primary, secondary []byte) ([]byte, string, error) {
	first, _, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	frames := []image.Image{first}
	if len(secondary) > 0 {
		second, _, err := decode(secondary)
		if err != nil {
			return nil, "", err
		}
		frames = append(frames, imaging.Resize(second, first.Bounds().Dx(), first.Bounds().Dy(), imaging.Lanczos))
	} else {
		frames = append(frames, imaging.FlipH(first))
	}

	delay := p.Int("delay", 50)
	anim := &gif.GIF{}
	for _, frame := range frames {
		paletted := image.NewPaletted(frame.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, frame.Bounds(), frame, image.Point{})
		anim.Image = append(anim.Image, paletted)
		anim.Delay = append(anim.Delay, delay)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/gif", nil
}

func opNoise(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	amount := p.Float("amount", 0.1)
	rng := rand.New(rand.NewSource(int64(p.Int("seed", 1))))

	out := imaging.Clone(img)
	scale := amount * 255
	for i := 0; i < len(out.Pix); i += 4 {
		offset := (rng.Float64()*2 - 1) * scale
		for ch := 0; ch < 3; ch++ {
			out.Pix[i+ch] = clampByte(float64(out.Pix[i+ch]) + offset)
		}
	}
	return encode(out, format, 90)
}

func opPixelate(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	block := p.Int("block_size", 8)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	small := imaging.Resize(img, maxInt(1, w/block), maxInt(1, h/block), imaging.NearestNeighbor)
	out := imaging.Resize(small, w, h, imaging.NearestNeighbor)
	return encode(out, format, 90)
}

func opColor(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	out := imaging.AdjustBrightness(img, p.Float("brightness", 0))
	out = imaging.AdjustContrast(out, p.Float("contrast", 0))
	out = imaging.AdjustSaturation(out, p.Float("saturation", 0))
	return encode(out, format, 90)
}

func opText(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	canvas := imaging.Clone(img)
	col := parseHexColor(p.Str("color", "#ffffff"), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	drawText(canvas, p.Str("text", ""), p.Int("x", 10), p.Int("y", 20), col)
	return encode(canvas, format, 90)
}

func opAnnotation(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	canvas := imaging.Clone(img)
	col := parseHexColor(p.Str("color", "#ff0000"), color.NRGBA{R: 255, A: 255})
	x := p.Int("x", 0)
	y := p.Int("y", 0)
	w := p.Int("width", canvas.Bounds().Dx()-x)
	h := p.Int("height", canvas.Bounds().Dy()-y)
	thickness := p.Int("thickness", 2)

	drawRect(canvas, image.Rect(x, y, x+w, y+h), col, thickness)
	return encode(canvas, format, 90)
}

func opTransform(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	out := image.Image(img)
	if angle := p.Float("rotate", 0); angle != 0 {
		out = imaging.Rotate(out, angle, color.NRGBA{})
	}
	switch p.Str("flip", "none") {
	case "horizontal":
		out = imaging.FlipH(out)
	case "vertical":
		out = imaging.FlipV(out)
	}
	return encode(out, format, 90)
}

func opPerspective(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	skew := p.Float("skew", 15) * math.Pi / 180
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	shear := math.Tan(skew) * float64(h)
	outW := w + int(math.Ceil(math.Abs(shear)))

	out := image.NewNRGBA(image.Rect(0, 0, outW, h))
	for y := 0; y < h; y++ {
		offset := math.Tan(skew) * float64(y)
		if shear < 0 {
			offset -= shear
		}
		for x := 0; x < w; x++ {
			out.SetNRGBA(x+int(offset), y, src.NRGBAAt(x, y))
		}
	}
	return encode(out, format, 90)
}

func opCanvas(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	width := p.Int("width", img.Bounds().Dx())
	height := p.Int("height", img.Bounds().Dy())
	bg := parseHexColor(p.Str("background", "#ffffff"), color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	canvas := imaging.New(width, height, bg)
	canvas = imaging.PasteCenter(canvas, img)
	return encode(canvas, format, 90)
}

func opOverlay(p Params, primary, secondary []byte) ([]byte, string, error) {
	base, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}
	over, _, err := decode(secondary)
	if err != nil {
		return nil, "", err
	}

	pos := image.Pt(p.Int("x", 0), p.Int("y", 0))
	out := imaging.Overlay(base, over, pos, p.Float("opacity", 1.0))
	return encode(out, format, 90)
}

func opEnhance(p Params, primary, _ []byte) ([]byte, string, error) {
	img, format, err := decode(primary)
	if err != nil {
		return nil, "", err
	}

	out := imaging.AdjustContrast(img, p.Float("contrast", 10))
	if sharpen := p.Float("sharpen", 1.0); sharpen > 0 {
		out = imaging.Sharpen(out, sharpen)
	}
	return encode(out, format, 90)
}

func drawText(dst *image.NRGBA, text string, x, y int, col color.NRGBA) {
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

func drawRect(dst *image.NRGBA, rect image.Rectangle, col color.NRGBA, thickness int) {
	rect = rect.Intersect(dst.Bounds())
	for t := 0; t < thickness; t++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			setPixel(dst, x, rect.Min.Y+t, col)
			setPixel(dst, x, rect.Max.Y-1-t, col)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			setPixel(dst, rect.Min.X+t, y, col)
			setPixel(dst, rect.Max.X-1-t, y, col)
		}
	}
}

func setPixel(dst *image.NRGBA, x, y int, col color.NRGBA) {
	if image.Pt(x, y).In(dst.Bounds()) {
		dst.SetNRGBA(x, y, col)
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
