package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexErrorUnwrapAndRecoverable(t *testing.T) {
	underlying := errors.New("malformed token")
	err := ParseError("goat_library.h", underlying)

	assert.Equal(t, KindParseError, err.Kind)
	assert.Equal(t, "goat_library.h", err.Cpath)
	assert.True(t, errors.Is(err, underlying))
	assert.True(t, err.IsRecoverable())
	assert.Contains(t, err.Error(), "ParseError")
	assert.Contains(t, err.Error(), "goat_library.h")
}

func TestDbCorruptIsUnrecoverable(t *testing.T) {
	err := DbCorrupt("deserialize", errors.New("bad gob stream"))
	assert.False(t, err.IsRecoverable())
	assert.True(t, IsKind(err, KindDbCorrupt))
}

func TestDbTransientIsRecoverable(t *testing.T) {
	err := DbTransient("commit", errors.New("lock timeout"))
	assert.True(t, err.IsRecoverable())
	assert.True(t, IsKind(err, KindDbTransient))
}

func TestUsageAmbiguousNamesCandidates(t *testing.T) {
	err := UsageAmbiguous("file::main", []string{"A::run", "B::run"})
	assert.True(t, IsKind(err, KindUsageAmbiguous))
	assert.Contains(t, err.Error(), "A::run")
	assert.Contains(t, err.Error(), "B::run")
}

func TestUsageHomelessAndUnresolved(t *testing.T) {
	h := UsageHomeless("file::main", "plain.target")
	assert.True(t, IsKind(h, KindUsageHomeless))

	u := UsageUnresolved("file::main", "?::Foo::bar")
	assert.True(t, IsKind(u, KindUsageUnresolved))
}

func TestCapExceeded(t *testing.T) {
	err := CapExceeded("newfile.go")
	assert.True(t, IsKind(err, KindCapExceeded))
	assert.Equal(t, "newfile.go", err.Cpath)
}

func TestIsKindFalseForPlainError(t *testing.T) {
	assert.False(t, IsKind(errors.New("plain"), KindDbCorrupt))
}
