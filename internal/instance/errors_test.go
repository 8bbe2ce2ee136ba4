package instance

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindDuplicateName, KindOf(ErrDuplicateName("alpha")))
	assert.Equal(t, KindInvalidState, KindOf(ErrInvalidState("alpha", StatusRunning, "start")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create: %w", ErrNotFound("missing"))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("exec: not found")
	err := ErrJavaNotFound("/opt/java", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "JAVA_NOT_FOUND")
	assert.Contains(t, err.Error(), "/opt/java")
}
