package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAppErrorWrapping(t *testing.T) {
	err := fmt.Errorf("extract: %w", UnsupportedFormat("docx"))

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, CodeUnsupportedFormat, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestAppErrorGRPCStatus(t *testing.T) {
	cases := map[string]codes.Code{
		CodeUnsupportedFormat:     codes.InvalidArgument,
		CodeModelInvocationFailed: codes.Unavailable,
		CodeConfig:                codes.FailedPrecondition,
		"SOMETHING_ELSE":          codes.Internal,
	}
	for code, want := range cases {
		st, ok := status.FromError(NewAppError(code, "msg", nil))
		assert.True(t, ok, code)
		assert.Equal(t, want, st.Code(), code)
	}
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, codes.OK, StatusCode(nil))
	assert.Equal(t, codes.InvalidArgument, StatusCode(fmt.Errorf("load: %w", UnsupportedFormat("txt"))))
	assert.Equal(t, codes.Unimplemented, StatusCode(NewAppError(CodeUnknownDocumentType, "passport", ErrUnknownDocumentType)))
	assert.Equal(t, codes.DeadlineExceeded, StatusCode(fmt.Errorf("extract: %w", context.DeadlineExceeded)))
	assert.Equal(t, codes.Canceled, StatusCode(context.Canceled))
	assert.Equal(t, codes.Unknown, StatusCode(errors.New("boom")))
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, RequestIDFromContext(ctx))

	ctx2, id2 := EnsureRequestID(ctx)
	assert.Equal(t, id, id2)
	assert.Equal(t, ctx, ctx2)
}
