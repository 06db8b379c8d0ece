// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// 在此定义叶子错误。
// WARN: 新增错误前请先确认下面已有的错误是否能满足需求。
// 命名规则：Err + 相关前缀 + 错误名
var (
	// Traversal 相关
	ErrRecursionLimitExceeded = newGraphError("too much recursion when traversing the object graph", 100, false)
	ErrNotReconstructible     = newGraphError("type cannot be reconstructed", 101, false, WithErrorType(InputError))
	ErrInvalidConfiguration   = newGraphError("invalid serializer configuration", 102, false, WithErrorType(InputError))
	ErrUnsupportedScalarKind  = newGraphError("unsupported scalar kind", 103, false, WithErrorType(InputError))

	// Emitter 相关
	ErrInvalidEventStream = newGraphError("invalid event stream", 200, false)
	ErrUnsupportedEvent   = newGraphError("event not supported by emitter", 201, false)
	ErrEmitFailed         = newGraphError("failed to emit event", 202, false)

	// Converter 相关
	ErrConverterFailed = newGraphError("type converter failed", 300, false)

	// Store 相关
	ErrPublishFailed = newGraphError("failed to publish document", 400, true)

	// IO 相关
	ErrIoFailed = newGraphError("IO failed", 1001, false)

	// Parameter 相关
	ErrParameterInvalid = newGraphError("invalid parameter", 1100, false, WithErrorType(InputError))

	// 不要导出该错误，
	// 仅用于把未知错误转换为 graphError。
	errUnexpected = newGraphError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*graphError)

func WithDetail(detail string) errorOption {
	return func(err *graphError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *graphError) {
		err.errType = etype
	}
}

type graphError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newGraphError(msg string, code int32, retriable bool, options ...errorOption) graphError {
	err := graphError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e graphError) code() int32 {
	return e.errCode
}

func (e graphError) Error() string {
	return e.msg
}

func (e graphError) Detail() string {
	return e.detail
}

func (e graphError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(graphError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// 多个错误的 cause 定义为最后一个错误，
	// 这样 Code 等函数对组合错误依然有效。
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
