package noise

import (
	"testing"

	mpc "github.com/milosgajdos/go-mpc"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewZero(t *testing.T) {
	assert := assert.New(t)

	for _, size := range []int{1, 2, 5} {
		e, err := NewZero(size)
		assert.NotNil(e)
		assert.NoError(err)

		assert.Equal(size, e.Cov().SymmetricDim())
		assert.True(mat.Equal(mat.NewSymDense(size, nil), e.Cov()))
		assert.EqualValues(make([]float64, size), e.Mean())
		assert.True(mat.Equal(mat.NewVecDense(size, nil), e.Sample()))
	}

	for _, size := range []int{0, -10} {
		e, err := NewZero(size)
		assert.Nil(e)
		assert.Error(err)
	}

	var _ mpc.Noise = &Zero{}
}

func TestZeroReset(t *testing.T) {
	assert := assert.New(t)

	e, err := NewZero(2)
	assert.NoError(err)

	sample1 := e.Sample()
	e.Reset()
	sample2 := e.Sample()
	assert.Equal(sample1, sample2)
}

func TestZeroString(t *testing.T) {
	assert := assert.New(t)

	str := `Zero{
Mean=[0 0]
Cov=⎡0  0⎤
    ⎣0  0⎦
}`

	e, err := NewZero(2)
	assert.NotNil(e)
	assert.NoError(err)
	assert.Equal(str, e.String())
}
