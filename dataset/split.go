package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/mlpipe/pkg/errors"
)

// TrainTestSplit shuffles the rows with a seeded permutation and splits them.
// The test partition holds ceil(testSize*n) rows, the first entries of the
// permutation; the train partition holds the rest. Both partitions are
// non-empty, disjoint and together contain every row.
func TrainTestSplit(ds *Dataset, testSize float64, seed int64) (train, test *Dataset, err error) {
	if math.IsNaN(testSize) || testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	n := ds.Len()
	nTest, nTrain := SplitSizes(n, testSize)
	if nTest == 0 || nTrain == 0 {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("with n_samples=%d and test_size=%g one partition would be empty", n, testSize))
	}

	perm := rand.New(rand.NewPCG(uint64(seed), uint64(seed))).Perm(n)
	return ds.Subset(perm[nTest:]), ds.Subset(perm[:nTest]), nil
}

// SplitSizes returns (nTest, nTrain) for n rows.
func SplitSizes(n int, testSize float64) (int, int) {
	nTest := int(math.Ceil(testSize * float64(n)))
	return nTest, n - nTest
}
