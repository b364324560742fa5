package trainer

import (
	"encoding/gob"
	"strings"

	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/ensemble"
	"github.com/YuminosukeSato/mlpipe/linear"
	"github.com/YuminosukeSato/mlpipe/neighbors"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/tree"
)

// Kind identifies a candidate model. Candidates are always evaluated in Kind
// order, which also breaks score ties.
type Kind int

const (
	RandomForest Kind = iota
	DecisionTree
	GradientBoosting
	LinearRegression
	KNeighbors
	XGBoost
	CatBoost
	AdaBoost
)

var kindNames = [...]string{
	RandomForest:     "Random Forest",
	DecisionTree:     "Decision Tree",
	GradientBoosting: "Gradient Boosting",
	LinearRegression: "Linear Regression",
	KNeighbors:       "K-Neighbors",
	XGBoost:          "XGBoost",
	CatBoost:         "CatBoost",
	AdaBoost:         "AdaBoost",
}

// String returns the display name used in reports and logs.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Kinds returns every candidate kind in evaluation order.
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// ParseKind resolves a display name, ignoring case.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Kind(i), nil
		}
	}
	return 0, errors.NewValidationError("candidates", "unknown model", name)
}

// New returns an unfitted regressor with this kind's default hyperparameters.
func (k Kind) New() model.Regressor {
	switch k {
	case RandomForest:
		return ensemble.NewRandomForestRegressor()
	case DecisionTree:
		return tree.NewDecisionTreeRegressor()
	case GradientBoosting:
		return ensemble.NewGradientBoostingRegressor()
	case LinearRegression:
		return linear.NewLinearRegression()
	case KNeighbors:
		return neighbors.NewKNeighborsRegressor()
	case XGBoost:
		return ensemble.NewXGBRegressor()
	case CatBoost:
		return ensemble.NewCatBoostRegressor()
	case AdaBoost:
		return ensemble.NewAdaBoostRegressor()
	}
	return nil
}

func init() {
	// Envelope.Model is an interface, so every concrete regressor is registered.
	for _, k := range Kinds() {
		gob.Register(k.New())
	}
}
