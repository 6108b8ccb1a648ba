package textutil_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kart-io/dochub/internal/pkg/textutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{
			name:     "相同向量",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 1.0,
		},
		{
			name:     "正交向量",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{0.0, 1.0, 0.0},
			expected: 0.0,
		},
		{
			name:     "相反向量",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{-1.0, 0.0, 0.0},
			expected: -1.0,
		},
		{
			name:     "空向量",
			a:        []float32{},
			b:        []float32{},
			expected: 0.0,
		},
		{
			name:     "长度不匹配",
			a:        []float32{1.0, 2.0},
			b:        []float32{1.0},
			expected: 0.0,
		},
		{
			name:     "零向量",
			a:        []float32{0.0, 0.0},
			b:        []float32{1.0, 2.0},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := textutil.CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, result, 0.0001)
		})
	}
}

func TestNormalizeCosineSimilarity(t *testing.T) {
	tests := []struct {
		name       string
		similarity float64
		expected   float64
	}{
		{"最大相似度", 1.0, 1.0},
		{"最小相似度", -1.0, 0.0},
		{"中等相似度", 0.0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := textutil.NormalizeCosineSimilarity(tt.similarity)
			assert.InDelta(t, tt.expected, result, 0.0001)
		})
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"不需要截断", "hello", 10, "hello"},
		{"精确长度", "hello", 5, "hello"},
		{"截断", "hello world", 5, "hello"},
		{"中文截断", "你好世界啊", 2, "你好"},
		{"空字符串", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, textutil.TruncateString(tt.input, tt.maxLen))
		})
	}
}

func TestSplitIntoChunks(t *testing.T) {
	t.Run("空文本返回空切片", func(t *testing.T) {
		chunks := textutil.SplitIntoChunks("", 1000, 200)
		require.NotNil(t, chunks)
		assert.Empty(t, chunks)
	})

	t.Run("纯空白文本返回空切片", func(t *testing.T) {
		chunks := textutil.SplitIntoChunks("   \n\t  ", 1000, 200)
		assert.Empty(t, chunks)
	})

	t.Run("短文本产生单个块", func(t *testing.T) {
		chunks := textutil.SplitIntoChunks("hello world", 1000, 200)
		require.Len(t, chunks, 1)
		assert.Equal(t, "hello world", chunks[0])
	})

	t.Run("长文本产生重叠块", func(t *testing.T) {
		text := strings.Repeat("a", 2500)
		chunks := textutil.SplitIntoChunks(text, 1000, 200)
		require.NotEmpty(t, chunks)

		// 第一个块是完整窗口，相邻块起点相差 chunkSize-overlap
		assert.Len(t, chunks[0], 1000)
		assert.Len(t, chunks[1], 1000)

		// 所有字符都被覆盖
		total := 0
		for _, c := range chunks {
			total += len(c)
		}
		assert.GreaterOrEqual(t, total, len(text))
	})

	t.Run("结果是确定性的", func(t *testing.T) {
		text := strings.Repeat("The quick brown fox. ", 200)
		first := textutil.SplitIntoChunks(text, 1000, 200)
		second := textutil.SplitIntoChunks(text, 1000, 200)
		assert.Equal(t, first, second)
	})

	t.Run("重叠大于等于块大小仍然前进", func(t *testing.T) {
		text := strings.Repeat("x", 50)
		chunks := textutil.SplitIntoChunks(text, 10, 10)
		require.NotEmpty(t, chunks)
		// 能正常结束即证明循环不会卡死；拼接结果必须覆盖全文
		joined := strings.Join(chunks, "")
		assert.GreaterOrEqual(t, len(joined), len(text))
	})

	t.Run("无效块大小", func(t *testing.T) {
		assert.Empty(t, textutil.SplitIntoChunks("hello", 0, 0))
		assert.Empty(t, textutil.SplitIntoChunks("hello", -1, 0))
	})

	t.Run("按 Unicode 字符分割", func(t *testing.T) {
		text := strings.Repeat("中文字符测试", 100)
		chunks := textutil.SplitIntoChunks(text, 100, 20)
		for _, c := range chunks {
			// 每个块都是合法 UTF-8 且不超过窗口大小
			assert.True(t, utf8.ValidString(c))
			assert.LessOrEqual(t, len([]rune(c)), 100)
		}
	})

	t.Run("空白块被过滤", func(t *testing.T) {
		text := "abc" + strings.Repeat(" ", 30) + "def"
		chunks := textutil.SplitIntoChunks(text, 10, 0)
		for _, c := range chunks {
			assert.NotEmpty(t, strings.TrimSpace(c))
		}
	})
}

func TestContainsString(t *testing.T) {
	slice := []string{"a", "b", "c"}
	assert.True(t, textutil.ContainsString(slice, "b"))
	assert.False(t, textutil.ContainsString(slice, "d"))
	assert.False(t, textutil.ContainsString(nil, "a"))
}
