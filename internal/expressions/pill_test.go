package expressions

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Extraction ---

func TestExtractPills_Single(t *testing.T) {
	pills, errs := ExtractPills("Hello #{_dp('trigger.email')}!")
	require.Empty(t, errs)
	require.Len(t, pills, 1)

	p := pills[0]
	assert.Equal(t, "_dp('trigger.email')", p.Raw)
	assert.Equal(t, "trigger", p.Source)
	assert.Equal(t, []string{"email"}, p.Path)
	assert.Equal(t, Span{Start: 6, End: 29}, p.Span)
}

func TestExtractPills_PlainText(t *testing.T) {
	pills, errs := ExtractPills("no markers here, just 100% text {}")
	assert.Empty(t, pills)
	assert.Empty(t, errs)
}

func TestExtractPills_Multiple(t *testing.T) {
	pills, errs := ExtractPills("#{_dp('1.id')}-#{_dp('get_user.body.name')}")
	require.Empty(t, errs)
	require.Len(t, pills, 2)

	assert.Equal(t, "1", pills[0].Source)
	assert.Equal(t, []string{"id"}, pills[0].Path)
	assert.Equal(t, "get_user", pills[1].Source)
	assert.Equal(t, []string{"body", "name"}, pills[1].Path)
	assert.Equal(t, 15, pills[1].Span.Start)
}

func TestExtractPills_SourceOnly(t *testing.T) {
	pills, errs := ExtractPills("#{_dp('3')}")
	require.Empty(t, errs)
	require.Len(t, pills, 1)
	assert.Equal(t, "3", pills[0].Source)
	assert.Empty(t, pills[0].Path)
}

func TestExtractPills_JSONForm(t *testing.T) {
	s := `#{_dp('{"pill_type":"output","provider":"http","line":"get","path":["body",0]}')}`
	pills, errs := ExtractPills(s)
	require.Empty(t, errs)
	require.Len(t, pills, 1)
	assert.Equal(t, "get", pills[0].Source)
	assert.Equal(t, []string{"body", "0"}, pills[0].Path)
	assert.Equal(t, len(s), pills[0].Span.End)
}

// --- Malformed markers ---

func TestExtractPills_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		offset  int
		message string
	}{
		{"missing closing", "x #{_dp('1.id'", 2, "missing its closing"},
		{"double quoted", `#{_dp("1.a")}`, 0, "single-quoted"},
		{"empty reference", "#{_dp('')}", 0, "empty data pill reference"},
		{"empty segment", "#{_dp('1..a')}", 0, "empty path segment"},
		{"lone marker", "abc #{", 4, "unterminated"},
		{"bad json", "#{_dp('{\"line\":')}", 0, "invalid data pill JSON"},
		{"json without line", `#{_dp('{"path":["a"]}')}`, 0, "has no line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pills, errs := ExtractPills(tt.input)
			assert.Empty(t, pills)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.offset, errs[0].Offset)
			assert.Contains(t, errs[0].Message, tt.message)
		})
	}
}

func TestExtractPills_ResumesAfterDefect(t *testing.T) {
	pills, errs := ExtractPills("#{foo} then #{_dp('1.a')}")
	require.Len(t, errs, 1)
	assert.Equal(t, 0, errs[0].Offset)
	assert.Contains(t, errs[0].Message, "unsupported interpolation")

	require.Len(t, pills, 1)
	assert.Equal(t, "1", pills[0].Source)
	assert.Equal(t, 12, pills[0].Span.Start)
}

func TestExtractPills_BrokenThenValid(t *testing.T) {
	pills, errs := ExtractPills("#{_dp('1.a' and #{_dp('2.b')}")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "missing its closing")
	require.Len(t, pills, 1)
	assert.Equal(t, "2", pills[0].Source)
}

// --- Scanner ---

func TestPillScanner_EOFIsSticky(t *testing.T) {
	sc := NewPillScanner("#{_dp('1.a')}")

	p, err := sc.Next()
	require.NoError(t, err)
	assert.Equal(t, "1", p.Source)

	_, err = sc.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = sc.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPillSyntaxError_Error(t *testing.T) {
	err := &PillSyntaxError{Offset: 3, Message: "boom"}
	assert.Equal(t, "offset 3: boom", err.Error())
}

func TestHasMarker(t *testing.T) {
	assert.True(t, HasMarker("=a + #{x}"))
	assert.False(t, HasMarker("# {x}"))
}
