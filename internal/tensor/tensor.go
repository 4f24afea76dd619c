package tensor

import "fmt"

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// Vector is a dense float32 vector.
type Vector struct {
	Data []float32
}

func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: make([]float32, rows*cols),
	}
}

func NewVector(n int) *Vector {
	return &Vector{Data: make([]float32, n)}
}

// Row returns a view of row i. The slice aliases the matrix storage.
func (m *Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

func (m *Matrix) At(i, j int) float32 {
	return m.Data[i*m.Cols+j]
}

func (m *Matrix) Set(i, j int, v float32) {
	m.Data[i*m.Cols+j] = v
}

func (m *Matrix) Len() int {
	return m.Rows * m.Cols
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := NewMatrix(m.Rows, m.Cols)
	copy(out.Data, m.Data)
	return out
}

func (v *Vector) Len() int {
	return len(v.Data)
}

// CheckShape verifies the backing slice matches the declared dimensions.
func (m *Matrix) CheckShape() error {
	if m.Rows < 0 || m.Cols < 0 {
		return &ShapeMismatchError{
			What: fmt.Sprintf("negative dimensions %dx%d", m.Rows, m.Cols),
		}
	}
	if len(m.Data) != m.Rows*m.Cols {
		return &ShapeMismatchError{
			What: fmt.Sprintf("matrix declared %dx%d but holds %d elements", m.Rows, m.Cols, len(m.Data)),
		}
	}
	return nil
}
