package domainerrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: These are core error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "credential not found"}
		s.Equal("credential not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeStateTransition}
		s.Equal("state_transition", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("database connection failed")
		err := &Error{Code: CodeInternal, Message: "service error", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("works with errors.Unwrap", func() {
		inner := errors.New("root cause")
		err := &Error{Code: CodeInternal, Err: inner}
		s.Equal(inner, errors.Unwrap(err))
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeNotFound, Message: "participant not found"}
		err2 := &Error{Code: CodeNotFound, Message: "credential not found"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeConflict}
		err2 := &Error{Code: CodeStateTransition}
		s.False(err1.Is(err2))
	})

	s.Run("works with errors.Is through chain", func() {
		inner := &Error{Code: CodeNotFound, Message: "original"}
		wrapped := &Error{Code: CodeInternal, Message: "wrapped", Err: inner}
		target := &Error{Code: CodeNotFound}
		s.True(errors.Is(wrapped, target))
	})
}

func (s *DomainErrorsSuite) TestWrapPreservesCode() {
	inner := New(CodeStateTransition, "ISSUED -> REQUESTING is not allowed")
	wrapped := Wrap(inner, CodeInternal, "could not update credential")

	s.True(HasCode(wrapped, CodeStateTransition))
	s.False(HasCode(wrapped, CodeInternal))
}

func (s *DomainErrorsSuite) TestIsRetryable() {
	s.True(IsRetryable(New(CodeConflict, "stale update")))
	s.True(IsRetryable(New(CodeTimeout, "key resolver timed out")))
	s.False(IsRetryable(New(CodeStateTransition, "terminal status")))
	s.False(IsRetryable(errors.New("plain error")))
}

func (s *DomainErrorsSuite) TestWrapExternal() {
	s.Run("deadline expiry becomes a retryable timeout", func() {
		err := WrapExternal(context.DeadlineExceeded, "reading secret")
		s.True(HasCode(err, CodeTimeout))
		s.True(IsRetryable(err))
		s.ErrorIs(err, context.DeadlineExceeded)
	})

	s.Run("cancellation becomes a retryable timeout", func() {
		err := WrapExternal(context.Canceled, "query credentials")
		s.True(HasCode(err, CodeTimeout))
	})

	s.Run("wrapped deadline deep in a chain still maps", func() {
		inner := fmt.Errorf("dial tcp: %w", context.DeadlineExceeded)
		s.True(HasCode(WrapExternal(inner, "storing secret"), CodeTimeout))
	})

	s.Run("other failures stay internal", func() {
		err := WrapExternal(errors.New("connection refused"), "reading secret")
		s.True(HasCode(err, CodeInternal))
		s.False(IsRetryable(err))
	})
}
