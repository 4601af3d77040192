// Package escpos renders slip documents into the ESC/POS page-description
// byte protocol spoken by thermal receipt printers.
//
// A Document is an ordered list of Directives. Directives are produced by the
// printing package and serialized here; the split keeps layout decisions out
// of the byte-level protocol and makes both halves independently testable.
package escpos

import "strings"

// LineWidth is the printable width, in characters, of an 80mm thermal
// printer in the default font. All column arithmetic is done against it.
const LineWidth = 48

const (
	esc = 0x1B
	gs  = 0x1D
)

// Alignment selects horizontal alignment for subsequent text.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// TextSize selects the character size for subsequent text. Values map
// directly onto the GS ! size byte.
type TextSize byte

const (
	SizeNormal       TextSize = 0x00
	SizeDoubleHeight TextSize = 0x01
	SizeDouble       TextSize = 0x11
)

// DirectiveKind discriminates the Directive variants.
type DirectiveKind int

const (
	KindText DirectiveKind = iota
	KindColumns
	KindRule
	KindAlign
	KindBold
	KindSize
	KindFeed
	KindCut
	KindDrawer
)

// Directive is one formatting instruction. Only the fields relevant to its
// Kind are meaningful.
type Directive struct {
	Kind  DirectiveKind
	Text  string
	Left  string
	Right string
	Align Alignment
	On    bool
	Size  TextSize
	Lines int
	Char  byte
}

// Document fully describes one slip.
type Document []Directive

func Text(s string) Directive             { return Directive{Kind: KindText, Text: s} }
func Columns(left, right string) Directive {
	return Directive{Kind: KindColumns, Left: left, Right: right}
}
func Rule(ch byte) Directive        { return Directive{Kind: KindRule, Char: ch} }
func Align(a Alignment) Directive   { return Directive{Kind: KindAlign, Align: a} }
func Bold(on bool) Directive        { return Directive{Kind: KindBold, On: on} }
func Size(s TextSize) Directive     { return Directive{Kind: KindSize, Size: s} }
func Feed(lines int) Directive      { return Directive{Kind: KindFeed, Lines: lines} }
func Cut() Directive                { return Directive{Kind: KindCut} }
func Drawer() Directive             { return Directive{Kind: KindDrawer} }

// Encode serializes a document into the printer byte stream. The output
// always starts with the initialize sequence so every slip prints from a
// known printer state. Encoding never fails: text is transcoded rune by rune
// into single bytes, values above the representable range are masked.
func Encode(doc Document) []byte {
	buf := []byte{esc, '@'}
	for _, d := range doc {
		switch d.Kind {
		case KindText:
			buf = appendLine(buf, d.Text)
		case KindColumns:
			buf = appendLine(buf, LeftRight(d.Left, d.Right, LineWidth))
		case KindRule:
			buf = appendLine(buf, DrawLine(d.Char, LineWidth))
		case KindAlign:
			buf = append(buf, esc, 'a', byte(d.Align))
		case KindBold:
			n := byte(0)
			if d.On {
				n = 1
			}
			buf = append(buf, esc, 'E', n)
		case KindSize:
			buf = append(buf, gs, '!', byte(d.Size))
		case KindFeed:
			buf = append(buf, esc, 'd', clampByte(d.Lines))
		case KindCut:
			buf = append(buf, gs, 'V', 66, 0)
		case KindDrawer:
			// Pulse drawer kick on pin 2 for 50ms on / 500ms off.
			buf = append(buf, esc, 'p', 0, 25, 250)
		}
	}
	return buf
}

func appendLine(buf []byte, s string) []byte {
	for _, r := range s {
		buf = append(buf, byte(r))
	}
	return append(buf, '\n')
}

func clampByte(n int) byte {
	if n < 1 {
		return 1
	}
	if n > 255 {
		return 255
	}
	return byte(n)
}

// DrawLine returns a horizontal rule of ch repeated width times.
func DrawLine(ch byte, width int) string {
	if width < 0 {
		width = 0
	}
	return strings.Repeat(string(ch), width)
}

// LeftRight lays out two strings on one line with right justified against
// the remainder of width. When the combined length exceeds width the gap
// degrades to a single space with right unshifted.
func LeftRight(left, right string, width int) string {
	gap := width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// Col truncates text to width and pads it with spaces on the side(s)
// determined by align. Center alignment gives the odd remainder to the
// right side.
func Col(text string, width int, align Alignment) string {
	if width <= 0 {
		return ""
	}
	if len(text) > width {
		text = text[:width]
	}
	pad := width - len(text)
	switch align {
	case AlignRight:
		return strings.Repeat(" ", pad) + text
	case AlignCenter:
		leftPad := pad / 2
		return strings.Repeat(" ", leftPad) + text + strings.Repeat(" ", pad-leftPad)
	default:
		return text + strings.Repeat(" ", pad)
	}
}
