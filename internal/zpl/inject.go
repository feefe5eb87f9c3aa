package zpl

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	BoxWidth     = 700
	BoxHeight    = 80
	MaxSKULength = 20
	UnknownSKU   = "UNKNOWN"
	ellipsis     = "..."

	DefaultX = 50
	DefaultY = 1100

	// MaxCoordinate is the largest accepted coordinate, in dots.
	MaxCoordinate = 32000
)

var (
	ErrFormat            = errors.New("label is not well-formed")
	ErrOutOfBounds       = errors.New("injected block exceeds label bounds")
	ErrInvalidCoordinate = errors.New("invalid injection coordinate")
)

type Options struct {
	// Nil, negative or above MaxCoordinate means the configured default.
	X, Y   *int
	DryRun bool
}

type Result struct {
	// On failure Label is the untouched input.
	Label    string   `json:"label"`
	SKU      string   `json:"sku"`
	Quantity float64  `json:"quantity"`
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Warnings []string `json:"warnings,omitempty"`
}

type Injector struct {
	defaultX int
	defaultY int
	zaplog   *zap.Logger
}

func NewInjector(defaultX, defaultY int, zaplog *zap.Logger) *Injector {
	if zaplog == nil {
		zaplog = zap.NewNop()
	}
	return &Injector{defaultX: defaultX, defaultY: defaultY, zaplog: zaplog}
}

// Inject places a "SKU / QTY" box before the final end marker of label.
func (inj *Injector) Inject(label, sku string, quantity float64, opts Options) (Result, error) {
	res := Result{Label: label}

	before := Validate(label)
	res.Warnings = before.Warnings
	if !before.OK {
		return res, fmt.Errorf("%w: %s", ErrFormat, strings.Join(before.Errors, "; "))
	}

	res.X = inj.resolve("x", opts.X, inj.defaultX)
	res.Y = inj.resolve("y", opts.Y, inj.defaultY)
	if res.X < 0 || res.Y < 0 {
		return res, fmt.Errorf("%w: (%d, %d) is negative", ErrInvalidCoordinate, res.X, res.Y)
	}
	if res.X > MaxCoordinate || res.Y > MaxCoordinate {
		return res, fmt.Errorf("%w: (%d, %d) exceeds %d", ErrInvalidCoordinate, res.X, res.Y, MaxCoordinate)
	}

	res.SKU = inj.sanitizeSKU(sku)
	res.Quantity = sanitizeQuantity(quantity)

	// без ^PW/^LL границы не проверяются
	if pw := before.Meta.PrintWidth; pw != nil && res.X+BoxWidth > *pw {
		return res, fmt.Errorf("%w: x %d + width %d > print width %d", ErrOutOfBounds, res.X, BoxWidth, *pw)
	}
	if ll := before.Meta.LabelLength; ll != nil && res.Y+BoxHeight > *ll {
		return res, fmt.Errorf("%w: y %d + height %d > label length %d", ErrOutOfBounds, res.Y, BoxHeight, *ll)
	}

	if opts.DryRun {
		return res, nil
	}

	end := *before.Meta.EndIndex
	var b strings.Builder
	b.Grow(len(label) + 128)
	b.WriteString(label[:end])
	if end > 0 && label[end-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString(renderBlock(res.X, res.Y, res.SKU, res.Quantity))
	b.WriteString(label[end:])
	mutated := b.String()

	after := Validate(mutated)
	if !after.OK {
		return res, fmt.Errorf("%w after injection: %s", ErrFormat, strings.Join(after.Errors, "; "))
	}

	res.Label = mutated
	return res, nil
}

// resolve returns the override when it is usable, otherwise def.
func (inj *Injector) resolve(axis string, override *int, def int) int {
	if override == nil {
		return def
	}
	if *override < 0 || *override > MaxCoordinate {
		inj.zaplog.Info("coordinate override ignored",
			zap.String("axis", axis),
			zap.Int("override", *override),
			zap.Int("default", def),
		)
		return def
	}
	return *override
}

func renderBlock(x, y int, sku string, quantity float64) string {
	return fmt.Sprintf("^FO%d,%d^GB%d,%d,3^FS\n^FO%d,%d^A0N,30,30^FDSKU: %s  QTY: %s^FS\n",
		x, y, BoxWidth, BoxHeight,
		x+20, y+25, sku, strconv.FormatFloat(quantity, 'f', -1, 64))
}

func (inj *Injector) sanitizeSKU(sku string) string {
	clean := strings.TrimSpace(sku)
	// ^ и ~ открывают новые команды ZPL
	clean = strings.NewReplacer("^", "-", "~", "-").Replace(clean)
	if clean == "" {
		return UnknownSKU
	}
	runes := []rune(clean)
	if len(runes) <= MaxSKULength {
		return clean
	}
	truncated := string(runes[:MaxSKULength-len(ellipsis)]) + ellipsis
	inj.zaplog.Warn("sku truncated for label",
		zap.String("sku", clean),
		zap.String("truncated", truncated),
	)
	return truncated
}

func sanitizeQuantity(q float64) float64 {
	if math.IsNaN(q) || math.IsInf(q, 0) || q <= 0 {
		return 1
	}
	return q
}

// ParseCoordinate accepts an integer or decimal string; ok is false for
// anything unparseable, non-finite or beyond ±MaxCoordinate.
func ParseCoordinate(s string) (int, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return RoundCoordinate(v)
}

// RoundCoordinate rounds v to whole dots.
func RoundCoordinate(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > MaxCoordinate {
		return 0, false
	}
	return int(math.Round(v)), true
}
