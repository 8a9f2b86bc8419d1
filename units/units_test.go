package units

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/unit"
)

func TestParseNamed(t *testing.T) {
	tests := []struct {
		in     string
		factor float64
		dims   unit.Dimensions
	}{
		{"m", 1, unit.Dimensions{unit.LengthDim: 1}},
		{"km", 1e3, unit.Dimensions{unit.LengthDim: 1}},
		{"mm", 1e-3, unit.Dimensions{unit.LengthDim: 1}},
		{"kg", 1, unit.Dimensions{unit.MassDim: 1}},
		{"min", 60, unit.Dimensions{unit.TimeDim: 1}},
		{"kPa", 1e3, unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -2}},
		{"bar", 1e5, unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -2}},
		{"m/s", 1, unit.Dimensions{unit.LengthDim: 1, unit.TimeDim: -1}},
		{"kg*m^2/s^2", 1, unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2}},
		{"kJ/(kg*K)", 1e3, unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -2, unit.TemperatureDim: -1}},
		{"N m", 1, unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2}},
		{"L/min", 1e-3 / 60, unit.Dimensions{unit.LengthDim: 3, unit.TimeDim: -1}},
		{"1/s", 1, unit.Dimensions{unit.TimeDim: -1}},
		{"", 1, unit.Dimensions{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, err := Parse(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.factor, u.Scale(), 1e-12*tt.factor)
			assert.Equal(t, tt.dims, u.Dimensions())
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("furlong")
	assert.True(t, errors.Is(err, ErrUnknownUnit))

	for _, in := range []string{"m^", "(m", "m/)", "m^x", "m#s", "2*m"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}

func TestOffsetUnits(t *testing.T) {
	c := MustParse("degC")
	assert.InDelta(t, 293.15, c.ToSI(20), 1e-12)
	assert.InDelta(t, 20, c.FromSI(293.15), 1e-12)
	assert.InDelta(t, 5, c.DeltaToSI(5), 0)

	f := MustParse("degF")
	assert.InDelta(t, 273.15, f.ToSI(32), 1e-9)
	assert.InDelta(t, 373.15, f.ToSI(212), 1e-9)

	// 复合表达式中视为温差
	cp := MustParse("J/(kg*degC)")
	assert.Equal(t, 0.0, cp.Offset())
	assert.True(t, cp.SameDimension(MustParse("J/(kg*K)")))
}

func TestAlgebraClosure(t *testing.T) {
	a := MustParse("kg*m")
	b := MustParse("m/s^2")

	prod := a.Mul(b)
	quot := a.Div(b)
	for _, d := range []unit.Dimension{unit.MassDim, unit.LengthDim, unit.TimeDim} {
		assert.Equal(t, a.Exponent(d)+b.Exponent(d), prod.Exponent(d), "乘法量纲指数应相加")
		assert.Equal(t, a.Exponent(d)-b.Exponent(d), quot.Exponent(d), "除法量纲指数应相减")
	}
	assert.True(t, prod.SameDimension(MustParse("N*m")))
	assert.False(t, a.SameDimension(b))
}

func TestPow(t *testing.T) {
	m := MustParse("cm")
	sq := m.Pow(2)
	assert.Equal(t, 2, sq.Exponent(unit.LengthDim))
	assert.InDelta(t, 1e-4, sq.Scale(), 1e-18)
	assert.Equal(t, "cm^2", sq.String())

	inv := m.Pow(-1)
	assert.Equal(t, -1, inv.Exponent(unit.LengthDim))

	// 有量纲时只允许整数次幂
	_, err := MustParse("m^2").PowReal(0.5)
	assert.True(t, errors.Is(err, ErrFraction))
	sq2, err := MustParse("m").PowReal(2)
	require.NoError(t, err)
	assert.Equal(t, 2, sq2.Exponent(unit.LengthDim))

	pct, err := MustParse("%").PowReal(0.5)
	require.NoError(t, err)
	assert.True(t, pct.IsDimensionless())
	assert.InDelta(t, 0.1, pct.Scale(), 1e-15)
}

func TestDimensionlessOperand(t *testing.T) {
	m := MustParse("m")
	inv := Dimensionless.Div(m)
	assert.Equal(t, -1, inv.Exponent(unit.LengthDim))
	assert.Equal(t, 1, m.Exponent(unit.LengthDim))

	scaled := MustParse("%").Mul(m)
	assert.Equal(t, 1, scaled.Exponent(unit.LengthDim))
	assert.InDelta(t, 0.01, scaled.Scale(), 1e-15)

	assert.True(t, Dimensionless.Pow(3).IsDimensionless())
	flow := MustParse("m^3/h")
	assert.Equal(t, "m^3/h", flow.String())
	assert.Equal(t, 3, flow.Exponent(unit.LengthDim))
	assert.InDelta(t, 1.0/3600, flow.Scale(), 1e-18)
}

func TestOffsetDelta(t *testing.T) {
	c := MustParse("degC")
	assert.Equal(t, "K", c.Delta().String())
	assert.Equal(t, 0.0, c.Delta().Offset())
	assert.Equal(t, "K", c.Pow(1).String())
	assert.Equal(t, 0.0, c.Mul(Dimensionless).Offset())
	assert.Equal(t, "bar", MustParse("bar").Delta().String())
}

func TestRoundTrip(t *testing.T) {
	for _, sym := range []string{"km", "bar", "degC", "L/min", "psi"} {
		u := MustParse(sym)
		for _, v := range []float64{0, 1, -3.5, 1234.5678} {
			assert.InDelta(t, v, u.FromSI(u.ToSI(v)), 1e-9*(1+v*v), sym)
		}
	}
}

func TestCanonicalString(t *testing.T) {
	assert.Equal(t, "kg/(m*s^2)", MustParse("Pa").SI().String())
	assert.Equal(t, "m/s", MustParse("km/h").SI().String())
	assert.Equal(t, "", Dimensionless.String())
	assert.Equal(t, "1/s", MustParse("Hz").SI().String())
}
