// Package mlpipe trains a regression model on a tabular dataset in three
// stages and keeps the winner on disk.
//
// # Stages
//
//   - ingestion: reads the source file, splits it with a seeded permutation
//     and writes train.csv and test.csv with a leading row-index column
//   - transformation: fits a median imputer with a scaler on the numeric
//     columns and a most-frequent imputer with a one-hot encoder on the
//     categorical ones, then persists the fitted preprocessor
//   - trainer: fits every candidate regressor, scores it by R² on the test
//     partition and persists the best one
//
// The pipeline package runs the stages in order and can record each run in
// a SQLite registry. The mlpipe command wires configuration and logging:
//
//	mlpipe -config configs/mlpipe.yaml
//	mlpipe -source data/stud.csv -log-level debug
//
// # Candidates
//
// Random Forest, Decision Tree, Gradient Boosting, Linear Regression,
// K-Neighbors, XGBoost, CatBoost and AdaBoost are tried in that order. Ties go
// to the earlier candidate.
//
// # Packages
//
//   - core/model: estimator interfaces and input checks
//   - dataset: string-celled tables, CSV I/O and the train/test split
//   - preprocessing: imputers, scaler, one-hot encoder, column transformer
//   - linear, tree, ensemble, neighbors: the regressors
//   - metrics: R², MSE, RMSE, MAE
//   - report: the score leaderboard and its bar chart
//   - artifact: gob and file persistence through temp file and rename
//   - registry: run history
//   - config: YAML configuration
//   - pkg/errors: typed errors built on cockroachdb/errors
//   - pkg/log: structured logging on zerolog
package mlpipe
