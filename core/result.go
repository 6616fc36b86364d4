package core

// Result is the uniform outcome of data-management operations.
// Failures carry a user-facing message in Error and the original error in Err.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func OkCount[T any](data T, count int) Result[T] {
	return Result[T]{Success: true, Data: data, Count: count}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Error: TranslateError(err), Err: err}
}
