package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/tasklink/pkg/errors"
)

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{Resource: "pair", ID: "p-1"}
		assert.Equal(t, "pair with ID p-1 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		wrapped := fmt.Errorf("lookup: %w", pkgerrors.NewNotFoundError("snapshot", "p-2"))
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("source_id", "", "cannot be empty")
		assert.Equal(t, "validation failed for field source_id: cannot be empty", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "pair has no sides"}
		assert.Equal(t, "validation failed: pair has no sides", err.Error())
	})
}

func TestAlreadyLinkedError(t *testing.T) {
	err := pkgerrors.NewAlreadyLinkedError("b", "task-9", "pair-3")
	assert.Contains(t, err.Error(), "already linked")
	assert.Contains(t, err.Error(), "pair-3")
	assert.True(t, pkgerrors.IsAlreadyLinked(err))
	assert.False(t, pkgerrors.IsNotFound(err))

	var target *pkgerrors.AlreadyLinkedError
	require.True(t, errors.As(fmt.Errorf("accept: %w", err), &target))
	assert.Equal(t, "task-9", target.ID)
}

func TestAPIError(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		err := pkgerrors.NewAPIError("tracker", 429, "slow down")
		assert.Contains(t, err.Error(), "status 429")
		assert.True(t, pkgerrors.IsRateLimited(err))
		assert.True(t, pkgerrors.IsAPIError(err))
	})

	t.Run("wrapped", func(t *testing.T) {
		base := errors.New("connection reset")
		err := pkgerrors.WrapAPI("planner", 0, base)
		assert.True(t, errors.Is(err, base))
		assert.Equal(t, "API error from planner: connection reset", err.Error())
		assert.False(t, pkgerrors.IsRateLimited(err))
	})

	t.Run("nil passthrough", func(t *testing.T) {
		assert.NoError(t, pkgerrors.WrapAPI("planner", 500, nil))
	})
}

func TestFetchError(t *testing.T) {
	base := pkgerrors.NewAPIError("planner", 503, "unavailable")
	err := pkgerrors.NewFetchError("planner", "list_comments", "t-1", base)
	assert.Contains(t, err.Error(), "list_comments failed for t-1")
	assert.True(t, pkgerrors.IsAPIError(err))
}

func TestStoreError(t *testing.T) {
	base := errors.New("disk full")
	err := pkgerrors.WrapStore("upsert", "snapshot", "p-1", base)
	assert.Equal(t, "failed to upsert snapshot p-1: disk full", err.Error())
	assert.True(t, errors.Is(err, base))
	assert.NoError(t, pkgerrors.WrapStore("get", "pair", "", nil))
}

func TestConfigAndParseErrors(t *testing.T) {
	cfg := pkgerrors.NewConfigError("tracker", "base_url is required", nil)
	assert.Equal(t, "configuration error in tracker: base_url is required", cfg.Error())

	base := errors.New("bad indent")
	parse := pkgerrors.WrapParse("yaml", "pairs.yaml", base)
	assert.Equal(t, "parse error in yaml file pairs.yaml: bad indent", parse.Error())
	assert.True(t, errors.Is(parse, base))
}
