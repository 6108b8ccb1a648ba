package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordID(t *testing.T) {
	assert.Equal(t, "doc:report.pdf:chunk:0", RecordID("report.pdf", 0))
	assert.Equal(t, "doc:report.pdf:chunk:42", RecordID("report.pdf", 42))

	// 相同输入总是产生相同 ID
	assert.Equal(t, RecordID("a", 1), RecordID("a", 1))
	assert.NotEqual(t, RecordID("a", 1), RecordID("a", 2))
	assert.NotEqual(t, RecordID("a", 1), RecordID("b", 1))
}

func TestNamespace(t *testing.T) {
	assert.Equal(t, "user-alice", Namespace("alice"))
	assert.NotEqual(t, Namespace("alice"), Namespace("bob"))
}

func TestPartitionName(t *testing.T) {
	tests := []struct {
		namespace string
		expected  string
	}{
		{"user-alice", "user_alice"},
		{"user-a1b2", "user_a1b2"},
		{"user-x@y.z", "user_x_y_z"},
		{"", "p_"},
		{"123", "p_123"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, partitionName(tt.namespace), "namespace %q", tt.namespace)
	}
}

func TestFilterExtra(t *testing.T) {
	t.Run("保留键被剔除", func(t *testing.T) {
		extra := map[string]string{
			"userId":     "evil",
			"documentId": "evil",
			"chunkIndex": "evil",
			"category":   "finance",
			"lang":       "zh",
		}
		filtered := FilterExtra(extra)
		assert.Equal(t, map[string]string{"category": "finance", "lang": "zh"}, filtered)
	})

	t.Run("全部为保留键时返回 nil", func(t *testing.T) {
		assert.Nil(t, FilterExtra(map[string]string{"source": "x", "contentType": "y"}))
	})

	t.Run("空输入返回 nil", func(t *testing.T) {
		assert.Nil(t, FilterExtra(nil))
		assert.Nil(t, FilterExtra(map[string]string{}))
	})

	t.Run("原 map 不被修改", func(t *testing.T) {
		extra := map[string]string{"userId": "x", "k": "v"}
		_ = FilterExtra(extra)
		assert.Len(t, extra, 2)
	})
}

func TestIsReservedMetadataKey(t *testing.T) {
	for _, key := range []string{"userId", "documentId", "chunkIndex", "originalFileName", "source", "contentType"} {
		assert.True(t, IsReservedMetadataKey(key), "key %q", key)
	}
	assert.False(t, IsReservedMetadataKey("category"))
	assert.False(t, IsReservedMetadataKey("UserID"))
}
