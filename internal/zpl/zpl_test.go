package zpl

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const label4x6 = "^XA\n^PW812\n^LL1218\n^FO50,50^A0N,40,40^FDShip to: Jane Doe^FS\n^XZ\n"

func intPtr(v int) *int { return &v }

func TestValidate(t *testing.T) {
	t.Run("well-formed", func(t *testing.T) {
		res := Validate(label4x6)
		require.True(t, res.OK)
		assert.Empty(t, res.Errors)
		assert.Empty(t, res.Warnings)
		assert.Equal(t, 0, *res.Meta.StartIndex)
		assert.Equal(t, strings.LastIndex(label4x6, "^XZ"), *res.Meta.EndIndex)
		assert.Equal(t, 812, *res.Meta.PrintWidth)
		assert.Equal(t, 1218, *res.Meta.LabelLength)
	})

	t.Run("empty", func(t *testing.T) {
		res := Validate("  \n")
		assert.False(t, res.OK)
		assert.Equal(t, []string{"payload is empty"}, res.Errors)
		assert.Empty(t, res.Warnings)
	})

	t.Run("missing markers reported independently", func(t *testing.T) {
		res := Validate("^FO50,50^FDhello^FS")
		assert.False(t, res.OK)
		assert.Len(t, res.Errors, 2)
		assert.Contains(t, res.Errors[0], "start marker")
		assert.Contains(t, res.Errors[1], "end marker")
		assert.Nil(t, res.Meta.StartIndex)
		assert.Nil(t, res.Meta.EndIndex)
	})

	t.Run("end before start", func(t *testing.T) {
		res := Validate("^XZ ^PW812 ^LL1218 ^XA")
		assert.False(t, res.OK)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "precedes")
	})

	t.Run("warnings do not affect ok", func(t *testing.T) {
		res := Validate("^XA^FDone^FS^XZ^XA^FDtwo^FS^XZ trailing")
		assert.True(t, res.OK)
		assert.Len(t, res.Warnings, 5)
		assert.Nil(t, res.Meta.PrintWidth)
		assert.Nil(t, res.Meta.LabelLength)
	})
}

func TestInject(t *testing.T) {
	inj := NewInjector(DefaultX, DefaultY, zaptest.NewLogger(t))

	t.Run("success keeps label valid", func(t *testing.T) {
		res, err := inj.Inject(label4x6, "  MUG-BLUE ", 2, Options{})
		require.NoError(t, err)
		assert.Equal(t, "MUG-BLUE", res.SKU)
		assert.Contains(t, res.Label, "^FO50,1100^GB700,80,3^FS\n^FO70,1125^A0N,30,30^FDSKU: MUG-BLUE  QTY: 2^FS\n^XZ")
		assert.True(t, Validate(res.Label).OK)
		assert.True(t, strings.HasPrefix(res.Label, "^XA"))
	})

	t.Run("refuses malformed label", func(t *testing.T) {
		orig := "^FO50,50^FDno markers^FS"
		res, err := inj.Inject(orig, "SKU", 1, Options{})
		require.ErrorIs(t, err, ErrFormat)
		assert.Equal(t, orig, res.Label)
	})

	t.Run("out of width", func(t *testing.T) {
		orig := "^XA\n^PW800\n^LL1218\n^XZ"
		res, err := inj.Inject(orig, "SKU", 1, Options{X: intPtr(500), Y: intPtr(10)})
		require.ErrorIs(t, err, ErrOutOfBounds)
		assert.Equal(t, orig, res.Label)
	})

	t.Run("out of length", func(t *testing.T) {
		res, err := inj.Inject(label4x6, "SKU", 1, Options{Y: intPtr(1200)})
		require.ErrorIs(t, err, ErrOutOfBounds)
		assert.Equal(t, label4x6, res.Label)
	})

	t.Run("no declared bounds skips the check", func(t *testing.T) {
		res, err := inj.Inject("^XA^FDx^FS^XZ", "SKU", 1, Options{X: intPtr(5000), Y: intPtr(5000)})
		require.NoError(t, err)
		assert.Contains(t, res.Label, "^FO5000,5000")
	})

	t.Run("negative override falls back to default", func(t *testing.T) {
		res, err := inj.Inject(label4x6, "SKU", 1, Options{X: intPtr(-5), Y: intPtr(-1)})
		require.NoError(t, err)
		assert.Equal(t, DefaultX, res.X)
		assert.Equal(t, DefaultY, res.Y)
		assert.Contains(t, res.Label, "^FO50,1100^GB700,80,3^FS")
	})

	t.Run("huge override falls back to default", func(t *testing.T) {
		res, err := inj.Inject("^XA^FDx^FS^XZ", "SKU", 1, Options{X: intPtr(math.MaxInt), Y: intPtr(MaxCoordinate + 1)})
		require.NoError(t, err)
		assert.Equal(t, DefaultX, res.X)
		assert.Equal(t, DefaultY, res.Y)
	})

	t.Run("negative default", func(t *testing.T) {
		bad := NewInjector(-1, DefaultY, zaptest.NewLogger(t))
		res, err := bad.Inject(label4x6, "SKU", 1, Options{})
		require.ErrorIs(t, err, ErrInvalidCoordinate)
		assert.Equal(t, label4x6, res.Label)

		// корректное переопределение имеет приоритет
		_, err = bad.Inject(label4x6, "SKU", 1, Options{X: intPtr(10)})
		require.NoError(t, err)
	})

	t.Run("long sku truncated to max length", func(t *testing.T) {
		res, err := inj.Inject(label4x6, "ABCDEFGHIJKLMNOPQRSTUVWXYZ", 1, Options{})
		require.NoError(t, err)
		assert.Len(t, res.SKU, MaxSKULength)
		assert.Equal(t, "ABCDEFGHIJKLMNOPQ...", res.SKU)
		assert.Contains(t, res.Label, "SKU: ABCDEFGHIJKLMNOPQ...  QTY: 1")
	})

	t.Run("empty sku and bad quantity", func(t *testing.T) {
		for _, q := range []float64{0, -3, math.NaN(), math.Inf(1)} {
			res, err := inj.Inject(label4x6, "   ", q, Options{})
			require.NoError(t, err)
			assert.Equal(t, UnknownSKU, res.SKU)
			assert.Equal(t, float64(1), res.Quantity)
		}
	})

	t.Run("command characters neutralised", func(t *testing.T) {
		res, err := inj.Inject(label4x6, "A^XZ~B", 1, Options{})
		require.NoError(t, err)
		assert.Equal(t, "A-XZ-B", res.SKU)
		assert.Equal(t, 1, strings.Count(res.Label, "^XZ"))
	})

	t.Run("dry run does not mutate", func(t *testing.T) {
		res, err := inj.Inject(label4x6, "SKU", 3, Options{DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, label4x6, res.Label)
		assert.Equal(t, float64(3), res.Quantity)
	})
}

func TestParseCoordinate(t *testing.T) {
	v, ok := ParseCoordinate(" 120 ")
	assert.True(t, ok)
	assert.Equal(t, 120, v)

	v, ok = ParseCoordinate("99.6")
	assert.True(t, ok)
	assert.Equal(t, 100, v)

	_, ok = ParseCoordinate("abc")
	assert.False(t, ok)
	_, ok = ParseCoordinate("NaN")
	assert.False(t, ok)
	_, ok = ParseCoordinate("32001")
	assert.False(t, ok)

	v, ok = RoundCoordinate(-3.4)
	assert.True(t, ok)
	assert.Equal(t, -3, v)
	_, ok = RoundCoordinate(1e300)
	assert.False(t, ok)
}
