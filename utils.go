package crbm

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
	"gorgonia.org/vecf32"
)

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// softplus is log(1+exp(x)), computed without overflowing for large |x|.
func softplus(x float32) float32 {
	if x > 0 {
		return x + math32.Log1p(math32.Exp(-x))
	}
	return math32.Log1p(math32.Exp(x))
}

// matmul is tensor.Dot narrowed to dense matrices.
func matmul(a, b *tensor.Dense) (*tensor.Dense, error) {
	c, err := tensor.Dot(a, b)
	if err != nil {
		return nil, errors.Wrap(err, "matmul")
	}
	return c.(*tensor.Dense), nil
}

// matmulT1 computes aᵀ·b into out without materializing the transpose.
// a is (n, m), b is (n, k), out is (m, k).
func matmulT1(a, b, out *tensor.Dense) error {
	am, err := native.MatrixF32(a)
	if err != nil {
		return errors.Wrap(err, "matmulT1: a")
	}
	bm, err := native.MatrixF32(b)
	if err != nil {
		return errors.Wrap(err, "matmulT1: b")
	}
	om, err := native.MatrixF32(out)
	if err != nil {
		return errors.Wrap(err, "matmulT1: out")
	}
	if len(am) != len(bm) {
		return errors.Errorf("matmulT1: a has %d rows, b has %d", len(am), len(bm))
	}

	out.Zero()
	for r := range am {
		brow := bm[r]
		for i, av := range am[r] {
			orow := om[i]
			for j, bv := range brow {
				orow[j] += av * bv
			}
		}
	}
	return nil
}

// matmulT2 computes a·bᵀ. a is (n, m), b is (k, m), result is (n, k).
func matmulT2(a, b *tensor.Dense) (*tensor.Dense, error) {
	am, err := native.MatrixF32(a)
	if err != nil {
		return nil, errors.Wrap(err, "matmulT2: a")
	}
	bm, err := native.MatrixF32(b)
	if err != nil {
		return nil, errors.Wrap(err, "matmulT2: b")
	}

	out := tensor.New(tensor.Of(Float), tensor.WithShape(len(am), len(bm)))
	om, err := native.MatrixF32(out)
	if err != nil {
		return nil, errors.Wrap(err, "matmulT2: out")
	}
	for r := range am {
		arow := am[r]
		for c := range bm {
			brow := bm[c]
			var acc float32
			for j := range arow {
				acc += arow[j] * brow[j]
			}
			om[r][c] = acc
		}
	}
	return out, nil
}

// addBias adds bias to every row of m in place.
func addBias(m, bias *tensor.Dense) error {
	rows, err := native.MatrixF32(m)
	if err != nil {
		return errors.Wrap(err, "addBias")
	}
	bv := bias.Data().([]float32)
	for _, row := range rows {
		vecf32.Add(row, bv)
	}
	return nil
}

// colMean writes the per-column mean of m into out.
func colMean(m, out *tensor.Dense) error {
	rows, err := native.MatrixF32(m)
	if err != nil {
		return errors.Wrap(err, "colMean")
	}
	out.Zero()
	ov := out.Data().([]float32)
	for _, row := range rows {
		vecf32.Add(ov, row)
	}
	vecf32.Scale(ov, 1/float32(len(rows)))
	return nil
}
