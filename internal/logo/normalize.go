// Package logo はアップロードされたロゴ画像を円形表示用の正方形画像に正規化する。
package logo

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// DefaultSize は正規化後の画像の一辺のピクセル数。
const DefaultSize = 512

// paddingPercent は正規化後の画像に付ける白い余白の割合（一辺に対する%）。
const paddingPercent = 5

// lanczos3 はLanczos-3窓関数による補間カーネル。
// x/image/drawのKernelは縮小時にサポート幅を広げるため、アンチエイリアスが効く。
var lanczos3 = &draw.Kernel{
	Support: 3,
	At: func(t float64) float64 {
		if t == 0 {
			return 1
		}
		if t >= 3 {
			return 0
		}
		pt := math.Pi * t
		return 3 * math.Sin(pt) * math.Sin(pt/3) / (pt * pt)
	},
}

var white = image.NewUniform(color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})

// Normalize はsrcを一辺sizeピクセルの不透明な正方形画像に変換する。
// I/Oを行わない純粋関数で、同じ入力とsizeに対して常に同じピクセルを返す。
//
// 処理手順:
//  1. 色の正規化: 白背景の元サイズのキャンバスにアルファ合成する
//     （透明ピクセルは白になり、パレットやグレースケールはRGBに変換される）
//  2. 中央を正方形に切り抜く（オフセットは(長辺-短辺)/2の切り捨て）
//  3. Lanczos-3でsize×sizeにリサイズする
//  4. size*5%（切り捨て）の余白を残して縮小し、白いキャンバスの中央に配置する
//
// sizeが0以下の場合はDefaultSizeを使う。
func Normalize(src image.Image, size int) *image.RGBA {
	if size <= 0 {
		size = DefaultSize
	}

	// 1. 色の正規化
	flat := flatten(src)

	// 2. 中央の正方形切り抜き
	square := cropCenterSquare(flat)
	if square.Bounds().Empty() {
		return newCanvas(size)
	}

	// 3. 目標サイズへのリサイズ
	img := newCanvas(size)
	lanczos3.Scale(img, img.Bounds(), square, square.Bounds(), draw.Src, nil)

	// 4. 余白の付与
	padding := size * paddingPercent / 100
	if padding > 0 {
		inner := size - padding*2
		padded := newCanvas(size)
		lanczos3.Scale(padded, image.Rect(padding, padding, padding+inner, padding+inner), img, img.Bounds(), draw.Src, nil)
		img = padded
	}

	opacify(img)
	return img
}

// flatten はsrcを原点基準の不透明RGBA画像に変換する。
// アルファを持つ画像やパレット画像は白背景に合成され、不透明な画像はそのままRGBに変換される。
func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}

	draw.Draw(dst, dst.Bounds(), white, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

// cropCenterSquare は画像の中央から短辺×短辺の領域を切り出す。
func cropCenterSquare(img *image.RGBA) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	switch {
	case w > h:
		left := (w - h) / 2
		return img.SubImage(image.Rect(left, 0, left+h, h)).(*image.RGBA)
	case h > w:
		top := (h - w) / 2
		return img.SubImage(image.Rect(0, top, w, top+w)).(*image.RGBA)
	default:
		return img
	}
}

// newCanvas は白で塗りつぶしたsize×sizeのキャンバスを返す。
func newCanvas(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), white, image.Point{}, draw.Src)
	return img
}

// opacify はリサンプリングの丸め誤差で残ったアルファを255に揃える。
func opacify(img *image.RGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
}
