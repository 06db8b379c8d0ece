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
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrRecursionLimitExceeded(51, 50)
	errors.Wrap(err, "failed to traverse")
	s.ErrorIs(err, ErrRecursionLimitExceeded)
	s.Equal(Code(ErrRecursionLimitExceeded), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))
	s.Equal(errUnexpected.errCode, Code(errors.New("plain")))
	s.Equal(int32(0), Code(nil))

	sameCodeErr := newGraphError("new error", ErrRecursionLimitExceeded.errCode, false)
	s.True(sameCodeErr.Is(ErrRecursionLimitExceeded))
}

func (s *ErrSuite) TestWrap() {
	// Traversal 相关错误。
	s.ErrorIs(WrapErrRecursionLimitExceeded(51, 50, "deep graph"), ErrRecursionLimitExceeded)
	s.ErrorIs(WrapErrNotReconstructible("main.opaque"), ErrNotReconstructible)
	s.ErrorIs(WrapErrInvalidConfiguration("serialize-as", "not assignable"), ErrInvalidConfiguration)
	s.ErrorIs(WrapErrUnsupportedScalarKind("chan", "chan int"), ErrUnsupportedScalarKind)

	// Emitter 相关错误。
	s.ErrorIs(WrapErrInvalidEventStream("unbalanced mapping end"), ErrInvalidEventStream)
	s.ErrorIs(WrapErrUnsupportedEvent("alias", "open anchor"), ErrUnsupportedEvent)
	s.ErrorIs(WrapErrEmitFailed("scalar", errors.New("mock")), ErrEmitFailed)
	s.NoError(WrapErrEmitFailed("scalar", nil))

	// Converter / Store / IO 相关错误。
	s.ErrorIs(WrapErrConverterFailed("uuid.UUID", errors.New("mock")), ErrConverterFailed)
	s.ErrorIs(WrapErrPublishFailed("/docs/a", errors.New("mock")), ErrPublishFailed)
	s.ErrorIs(WrapErrIoFailed("a.yaml", errors.New("mock")), ErrIoFailed)
	s.ErrorIs(WrapErrParameterInvalid("yaml", "xml", "format"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidMsg("bad %s", "value"), ErrParameterInvalid)
}

func (s *ErrSuite) TestWrapMessage() {
	err := WrapErrRecursionLimitExceeded(51, 50)
	s.Contains(err.Error(), "51 out of range 1 <= depth <= 50")

	err = WrapErrNotReconstructible("main.opaque")
	s.Contains(err.Error(), "[type=main.opaque]")
}

func (s *ErrSuite) TestRetriable() {
	s.True(IsRetryableErr(WrapErrPublishFailed("/docs/a", errors.New("unavailable"))))
	s.False(IsRetryableErr(WrapErrIoFailed("a.yaml", errors.New("eof"))))
	s.False(IsRetryableErr(errors.New("plain")))
}

func (s *ErrSuite) TestErrorType() {
	s.Equal(InputError, GetErrorType(WrapErrNotReconstructible("main.opaque")))
	s.Equal(SystemError, GetErrorType(WrapErrEmitFailed("scalar", errors.New("mock"))))
	s.Equal(InputError, GetErrorType(WrapErrAsInputError(ErrEmitFailed)))
	s.Equal("input_error", InputError.String())
}

func (s *ErrSuite) TestCanceledOrTimeout() {
	s.True(IsCanceledOrTimeout(errors.Wrap(context.Canceled, "stop")))
	s.True(IsCanceledOrTimeout(context.DeadlineExceeded))
	s.False(IsCanceledOrTimeout(ErrIoFailed))
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	s.Equal("first: second", err.Error())
}

func (s *ErrSuite) TestCombineWithNil() {
	err := errors.New("non-nil")

	err = Combine(nil, err)
	s.NotNil(err)
}

func (s *ErrSuite) TestCombineOnlyNil() {
	err := Combine(nil, nil)
	s.Nil(err)
}

func (s *ErrSuite) TestCombineCode() {
	err := Combine(WrapErrIoFailed("a.yaml", errors.New("eof")), WrapErrRecursionLimitExceeded(51, 50))
	s.Equal(Code(ErrRecursionLimitExceeded), Code(err))
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
