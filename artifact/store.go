// Package artifact は学習成果物（分割済みデータ、前処理器、モデル）を
// ファイルへ保存・読み込みする。書き込みは一時ファイルとリネームで行うため、
// 失敗時に中途半端な成果物が残ることはない。
package artifact

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/mlpipe/pkg/errors"
)

// Save はオブジェクトをgob形式でpathに保存する。親ディレクトリは必要に応じて作成される。
//
// パラメータ:
//   - path: 保存先のファイルパス
//   - obj: 保存するオブジェクト（BaseEstimatorを埋め込んだ構造体など）
//
// 戻り値:
//   - error: 保存に失敗した場合の PersistenceError
//
// 使用例:
//
//	ct := preprocessing.NewColumnTransformer(schema)
//	// ... 学習 ...
//	err := artifact.Save("artifacts/preprocessor.gob", ct)
func Save(path string, obj interface{}) error {
	return WriteFile(path, func(w io.Writer) error {
		return SaveToWriter(w, obj)
	})
}

// Load はpathのgobファイルをobjへ読み込む。objはポインタでなければならない。
func Load(path string, obj interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.NewPersistenceError(path, err)
	}
	defer f.Close()

	if err := LoadFromReader(f, obj); err != nil {
		return errors.NewPersistenceError(path, err)
	}
	return nil
}

// SaveToWriter はオブジェクトをgob形式でwに書き出す
func SaveToWriter(w io.Writer, obj interface{}) error {
	if err := gob.NewEncoder(w).Encode(obj); err != nil {
		return errors.Wrap(err, "failed to encode artifact")
	}
	return nil
}

// LoadFromReader はrからgob形式のオブジェクトを読み込む
func LoadFromReader(r io.Reader, obj interface{}) error {
	if err := gob.NewDecoder(r).Decode(obj); err != nil {
		return errors.Wrap(err, "failed to decode artifact")
	}
	return nil
}

// WriteFile はwriteが書き出した内容でpathを置き換える。
// 内容は同じディレクトリの一時ファイルに書かれ、成功した場合のみリネームされる。
func WriteFile(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewPersistenceError(path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.NewPersistenceError(path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if werr := write(tmp); werr != nil {
		_ = tmp.Close()
		return errors.NewPersistenceError(path, werr)
	}
	if cerr := tmp.Close(); cerr != nil {
		return errors.NewPersistenceError(path, cerr)
	}
	if rerr := os.Rename(tmp.Name(), path); rerr != nil {
		return errors.NewPersistenceError(path, rerr)
	}
	return nil
}

// Exists はpathにファイルが存在するかを返す
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
