package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// JoinErrors 合并多个错误，忽略 nil；只有一个错误时原样返回
func JoinErrors(errs ...error) error {
	var nonNilErrs []error
	for _, err := range errs {
		if err != nil {
			nonNilErrs = append(nonNilErrs, err)
		}
	}

	switch len(nonNilErrs) {
	case 0:
		return nil
	case 1:
		return nonNilErrs[0]
	}

	messages := make([]string, 0, len(nonNilErrs))
	for _, err := range nonNilErrs {
		messages = append(messages, err.Error())
	}
	return Internal(
		fmt.Sprintf("multiple errors occurred: %s", strings.Join(messages, "; ")),
		nonNilErrs[0],
	)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FormatErrorChain 格式化错误链，便于调试
func FormatErrorChain(err error) string {
	if err == nil {
		return "<nil>"
	}

	var result strings.Builder
	result.WriteString(err.Error())

	if appErr, ok := err.(*AppError); ok && len(appErr.Stack) > 0 {
		result.WriteString("\nStack Trace:\n")
		for _, frame := range appErr.Stack {
			result.WriteString("  ")
			result.WriteString(frame)
			result.WriteString("\n")
		}
	}

	if cause := stderrors.Unwrap(err); cause != nil {
		result.WriteString("\nCaused by: ")
		result.WriteString(FormatErrorChain(cause))
	}

	return result.String()
}
