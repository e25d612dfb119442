package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := Network("请求失败", "https://www.zhipin.com/job_detail/1.html", 403)
	assert.Equal(t, "[NETWORK_ERROR] 请求失败", err.Error())
	assert.Equal(t, 403, err.Context["status_code"])
	assert.Equal(t, "https://www.zhipin.com/job_detail/1.html", err.Context["url"])
}

func TestIsThroughWrapping(t *testing.T) {
	base := Validation("title is required", "title")
	wrapped := fmt.Errorf("create job: %w", base)

	assert.True(t, Is(wrapped, KindValidation))
	assert.False(t, Is(wrapped, KindDatabase))
	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, &Error{Kind: KindValidation}))
	assert.False(t, Is(errors.New("plain"), KindValidation))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestUnwrapCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Database("save job", cause)
	require.ErrorIs(t, err, cause)
}

func TestToMap(t *testing.T) {
	m := Parse("empty pdf", "/tmp/a.pdf", "pdf").ToMap()
	assert.Equal(t, "PARSE_ERROR", m["error_code"])
	ctx, ok := m["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pdf", ctx["file_type"])

	m = Database("x", nil).ToMap()
	_, has := m["context"]
	assert.False(t, has)
}

func TestUnsupported(t *testing.T) {
	err := Unsupported("docx")
	assert.Equal(t, KindUnsupported, err.Kind)
	assert.Contains(t, err.Error(), "docx")
}
