package segment

import (
	"fmt"
	"math"

	"clv-segments/pkg/models"

	"gonum.org/v1/gonum/stat"
)

// Matrix extracts the named columns from rows. Any missing value (unknown column, nil CLV,
// NaN) is an invalid-input error: callers impute before clustering.
func Matrix(rows []models.CustomerFeatures, cols []string) ([][]float64, error) {
	if len(rows) == 0 {
		return nil, models.ErrEmptyInput
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no clustering columns selected", models.ErrInvalidInput)
	}
	X := make([][]float64, len(rows))
	for i, r := range rows {
		X[i] = make([]float64, len(cols))
		for j, c := range cols {
			v, ok := r.Value(c)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: customer %s has no value for column %s",
					models.ErrInvalidInput, r.CustomerID, c)
			}
			X[i][j] = v
		}
	}
	return X, nil
}

// Scaler holds per-column statistics so the same standardization can be reapplied.
type Scaler struct {
	Mean  []float64
	Scale []float64 // population standard deviation; 1 for constant columns
}

// NewScaler computes column means and population standard deviations of X.
func NewScaler(X [][]float64) (*Scaler, error) {
	d, err := dims(X)
	if err != nil {
		return nil, err
	}
	s := &Scaler{Mean: make([]float64, d), Scale: make([]float64, d)}
	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Scale[j] = math.Sqrt(variance)
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}
	return s, nil
}

// Transform returns a standardized copy of X.
func (s *Scaler) Transform(X [][]float64) ([][]float64, error) {
	if _, err := dims(X); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("%w: row %d has %d columns, scaler has %d",
				models.ErrInvalidInput, i, len(row), len(s.Mean))
		}
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = (v - s.Mean[j]) / s.Scale[j]
		}
	}
	return out, nil
}

// Standardize fits a Scaler on X and transforms X with it.
func Standardize(X [][]float64) ([][]float64, *Scaler, error) {
	s, err := NewScaler(X)
	if err != nil {
		return nil, nil, err
	}
	Z, err := s.Transform(X)
	if err != nil {
		return nil, nil, err
	}
	return Z, s, nil
}

func dims(X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, models.ErrEmptyInput
	}
	d := len(X[0])
	if d == 0 {
		return 0, fmt.Errorf("%w: no feature columns", models.ErrInvalidInput)
	}
	for i, row := range X {
		if len(row) != d {
			return 0, fmt.Errorf("%w: row %d has %d columns, want %d", models.ErrInvalidInput, i, len(row), d)
		}
		for _, v := range row {
			if math.IsNaN(v) {
				return 0, fmt.Errorf("%w: row %d has a missing value", models.ErrInvalidInput, i)
			}
		}
	}
	return d, nil
}
