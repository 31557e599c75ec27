package request

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
	"github.com/xiebiao/bookstore-admin/pkg/retry"
)

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.n.Add(1)
	return nil
}

func TestExecutor_Success(t *testing.T) {
	var got string
	exec := New("/books", func(ctx context.Context, p map[string]any) (string, error) {
		return "created", nil
	}, WithOnSuccess(func(r string) { got = r }))

	res := exec.Execute(context.Background(), map[string]any{"title": "X"})
	require.True(t, res.Success)
	assert.Equal(t, "created", res.Data)
	assert.Equal(t, "created", got)

	st := exec.Snapshot()
	assert.False(t, st.Loading)
	assert.True(t, st.HasData)
	assert.Empty(t, st.Error)
}

func TestExecutor_ValidationSkipsNetwork(t *testing.T) {
	called := false
	schema := MapSchema{"title": "required,max=5", "price": "required,gt=0"}

	exec := New("/books", func(ctx context.Context, p map[string]any) (string, error) {
		called = true
		return "", nil
	}, WithValidator(schema))

	res := exec.Execute(context.Background(), map[string]any{"title": "demasiado largo", "price": float64(0)})
	assert.False(t, res.Success)
	assert.False(t, called, "预校验失败时不应发出请求")
	assert.Equal(t, []string{"price", "title"}, SortedFields(res.ValidationErrors))
	assert.Equal(t, []string{"debe ser como máximo 5"}, res.ValidationErrors["title"])

	var vErr *apperrors.ValidationError
	assert.True(t, errors.As(res.Err, &vErr))
}

func TestExecutor_MissingRequiredField(t *testing.T) {
	exec := New("/genres", func(ctx context.Context, p map[string]any) (string, error) {
		return "ok", nil
	}, WithValidator(MapSchema{"name": "required"}))

	res := exec.Execute(context.Background(), map[string]any{})
	assert.Equal(t, []string{"es obligatorio"}, res.ValidationErrors["name"])
}

func TestExecutor_ErrorMessagePrecedence(t *testing.T) {
	exec := New("/books", func(ctx context.Context, p string) (int, error) {
		return 0, &apperrors.APIError{StatusCode: 400, Messages: []string{"A", "B"}}
	})
	res := exec.Execute(context.Background(), "x")
	assert.Equal(t, "A, B", res.Message)
	assert.Equal(t, "A, B", exec.Snapshot().Error)

	empty := New("/books", func(ctx context.Context, p string) (int, error) {
		return 0, &apperrors.APIError{}
	})
	res = empty.Execute(context.Background(), "x")
	assert.Equal(t, "Error de conexión en /books", res.Message)
}

func TestExecutor_AuthFailureInvalidatesSession(t *testing.T) {
	inv := &countingInvalidator{}
	var onErr Result[int]

	exec := New("/users", func(ctx context.Context, p string) (int, error) {
		return 0, &apperrors.APIError{StatusCode: 401, Messages: []string{"Unauthorized"}}
	}, WithAuthInvalidator(inv), WithOnError(func(r Result[int]) { onErr = r }))

	exec.Execute(context.Background(), "")
	assert.Equal(t, int32(1), inv.n.Load())
	assert.Equal(t, "Unauthorized", onErr.Message)

	notAuth := New("/users", func(ctx context.Context, p string) (int, error) {
		return 0, &apperrors.APIError{StatusCode: 404, Messages: []string{"no existe"}}
	}, WithAuthInvalidator(inv))
	notAuth.Execute(context.Background(), "")
	assert.Equal(t, int32(1), inv.n.Load())
}

func TestExecutor_RetryPolicy(t *testing.T) {
	var calls atomic.Int32
	exec := New("/publishers", func(ctx context.Context, p string) (string, error) {
		if calls.Add(1) < 2 {
			return "", apperrors.NewNetworkError("/publishers", errors.New("refused"))
		}
		return "ok", nil
	}, WithRetry(retry.Policy{MaxRetries: 2, InitialInterval: time.Millisecond}))

	res := exec.Execute(context.Background(), "")
	require.True(t, res.Success)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExecutor_LastWriteWins(t *testing.T) {
	release := make(map[string]chan struct{})
	release["slow"] = make(chan struct{})
	release["fast"] = make(chan struct{})

	exec := New("/books", func(ctx context.Context, p string) (string, error) {
		<-release[p]
		return p, nil
	})

	done := make(chan struct{}, 2)
	go func() { exec.Execute(context.Background(), "slow"); done <- struct{}{} }()
	go func() { exec.Execute(context.Background(), "fast"); done <- struct{}{} }()

	close(release["fast"])
	<-done
	close(release["slow"])
	<-done

	assert.Equal(t, "slow", exec.Snapshot().Data, "最后完成的调用覆盖状态")

	exec.Reset()
	assert.False(t, exec.Snapshot().HasData)
}
