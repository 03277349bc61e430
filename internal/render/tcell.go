package render

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/annel0/tilecraft/internal/item"
	"github.com/annel0/tilecraft/internal/world"
)

// Screen - часть tcell.Screen, нужная для рисования
type Screen interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (width, height int)
}

type glyph struct {
	r     rune
	style tcell.Style
}

// TcellRenderer рисует мир в терминале: одна ячейка на тайл
type TcellRenderer struct {
	screen   Screen
	manifest *Manifest
	cellSize float64
	tiles    map[world.Tile]glyph
	sprites  []glyph
}

// NewTcellRenderer создаёт рендерер; cellSize - сторона тайла в пикселях
func NewTcellRenderer(screen Screen, manifest *Manifest, cellSize float64) *TcellRenderer {
	r := &TcellRenderer{
		screen:   screen,
		manifest: manifest,
		cellSize: cellSize,
		tiles:    make(map[world.Tile]glyph),
		sprites:  make([]glyph, manifest.Len()),
	}
	for i := range r.sprites {
		s, _ := manifest.Sprite(Handle(i))
		r.sprites[i] = glyph{r: s.Rune(), style: spriteStyle(s)}
	}
	for _, t := range []world.Tile{world.TileGrass, world.TileDirt, world.TileStone, world.TileWater} {
		if h, ok := manifest.Resolve(item.CategoryTiles, t.String()); ok {
			r.tiles[t] = r.sprites[h]
		}
	}
	return r
}

func spriteStyle(s Sprite) tcell.Style {
	style := tcell.StyleDefault
	if s.FG != "" {
		style = style.Foreground(tcell.GetColor(s.FG))
	}
	if s.BG != "" {
		style = style.Background(tcell.GetColor(s.BG))
	}
	return style
}

// ViewportPixels возвращает размер экрана в мировых пикселях
func (r *TcellRenderer) ViewportPixels() (width, height float64) {
	w, h := r.screen.Size()
	return float64(w) * r.cellSize, float64(h) * r.cellSize
}

// CellToPixel возвращает экранные пиксели центра ячейки
func (r *TcellRenderer) CellToPixel(col, row int) (px, py float64) {
	return (float64(col) + 0.5) * r.cellSize, (float64(row) + 0.5) * r.cellSize
}

func (r *TcellRenderer) set(col, row int, g glyph) {
	w, h := r.screen.Size()
	if col < 0 || row < 0 || col >= w || row >= h {
		return
	}
	r.screen.SetContent(col, row, g.r, nil, g.style)
}

// DrawTile рисует тайл одной ячейкой
func (r *TcellRenderer) DrawTile(t world.Tile, px, py, size float64) {
	g, ok := r.tiles[t]
	if !ok {
		g = glyph{r: '#', style: tcell.StyleDefault}
	}
	r.set(int(math.Floor(px/r.cellSize)), int(math.Floor(py/r.cellSize)), g)
}

// DrawSprite заполняет все ячейки, которые покрывает прямоугольник.
// Зеркалирование в терминале не видно.
func (r *TcellRenderer) DrawSprite(h Handle, px, py, w, hgt float64, _ bool) {
	if h < 0 || int(h) >= len(r.sprites) {
		return
	}
	g := r.sprites[h]
	minC := int(math.Floor(px / r.cellSize))
	minR := int(math.Floor(py / r.cellSize))
	maxC := int(math.Ceil((px+w)/r.cellSize)) - 1
	maxR := int(math.Ceil((py+hgt)/r.cellSize)) - 1
	for row := minR; row <= maxR; row++ {
		for col := minC; col <= maxC; col++ {
			r.set(col, row, g)
		}
	}
}

// DrawText пишет строку начиная с ячейки (col, row)
func (r *TcellRenderer) DrawText(col, row int, text string, style tcell.Style) {
	for _, ch := range text {
		r.set(col, row, glyph{r: ch, style: style})
		col++
	}
}

// Clear заливает экран пробелами
func (r *TcellRenderer) Clear() {
	w, h := r.screen.Size()
	blank := glyph{r: ' ', style: tcell.StyleDefault}
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			r.set(col, row, blank)
		}
	}
}
