package surface

import "sync"

// box is the geometry shared by the built-in objects. The surface gateway
// writes it from connection goroutines, so access is locked.
type box struct {
	mu   sync.RWMutex
	id   string
	geom Geometry
}

func (b *box) ID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.id
}

func (b *box) SetID(id string) {
	b.mu.Lock()
	b.id = id
	b.mu.Unlock()
}

func (b *box) Left() float64   { b.mu.RLock(); defer b.mu.RUnlock(); return b.geom.Left }
func (b *box) Top() float64    { b.mu.RLock(); defer b.mu.RUnlock(); return b.geom.Top }
func (b *box) Width() float64  { b.mu.RLock(); defer b.mu.RUnlock(); return b.geom.Width }
func (b *box) Height() float64 { b.mu.RLock(); defer b.mu.RUnlock(); return b.geom.Height }

func (b *box) SetGeometry(g Geometry) {
	b.mu.Lock()
	b.geom = g
	b.mu.Unlock()
}

// Shape is a filled rectangle or ellipse with a corner radius.
type Shape struct {
	box
	Kind string
	Fill string
	rx   float64
}

// NewShape creates a shape object.
func NewShape(kind string, g Geometry, fill string, rx float64) *Shape {
	s := &Shape{Kind: kind, Fill: fill, rx: rx}
	s.geom = g
	return s
}

func (s *Shape) Rx() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rx
}

func (s *Shape) SetRx(rx float64) {
	s.mu.Lock()
	s.rx = rx
	s.mu.Unlock()
}

// TextBox is a block of text.
type TextBox struct {
	box
	text     string
	FontSize float64
}

// NewTextBox creates a text object.
func NewTextBox(text string, g Geometry, fontSize float64) *TextBox {
	t := &TextBox{text: text, FontSize: fontSize}
	t.geom = g
	return t
}

func (t *TextBox) Text() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.text
}

func (t *TextBox) SetText(text string) {
	t.mu.Lock()
	t.text = text
	t.mu.Unlock()
}
