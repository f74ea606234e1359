package planfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roadmap-api/internal/models"
)

func sample() Exclusions {
	return Exclusions{
		DayExclusions: []models.DayExclusion{{Date: "2024-09-17", Label: "Field Trip", Category: models.ExclusionCategoryEvent}},
		WeekExclusions: []models.WeekExclusion{
			{WeekNumber: 6, Label: "Autumn Break", Category: models.ExclusionCategoryHoliday, ExcludeFromCount: true},
		},
	}
}

func TestEncodeYAMLUsesUIKeys(t *testing.T) {
	out, err := Encode(sample(), FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(out), "dayExclusions:")
	assert.Contains(t, string(out), "excludeFromCount: true")
	assert.Contains(t, string(out), "weekNumber: 6")
}

func TestDecodeLenient(t *testing.T) {
	raw := []byte(`
weekExclusions:
  - weekNumber: 3
    label: Exams
    unknownKey: whatever
notes: ignored
`)
	e, err := Decode(raw, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, []models.DayExclusion{}, e.DayExclusions)
	require.Len(t, e.WeekExclusions, 1)
	assert.Equal(t, 3, e.WeekExclusions[0].WeekNumber)
	assert.False(t, e.WeekExclusions[0].ExcludeFromCount)

	e, err = Decode([]byte(`{"dayExclusions":[{"date":"2024-10-01","extra":1}]}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "2024-10-01", e.DayExclusions[0].Date)
	assert.Equal(t, []models.WeekExclusion{}, e.WeekExclusions)

	e, err = Decode([]byte("  \n"), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, e.DayExclusions)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := Decode([]byte("dayExclusions: [unterminated"), FormatYAML)
	assert.Error(t, err)
	_, err = Decode([]byte("{"), FormatJSON)
	assert.Error(t, err)
}

func TestEncodeNilSlicesAsEmpty(t *testing.T) {
	out, err := Encode(Exclusions{}, FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dayExclusions":[],"weekExclusions":[]}`, string(out))
}

func TestWriteFileReadFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"exclusions.yaml", "exclusions.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, sample()))
		got, err := ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, sample(), got)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWriteFileUnknownExtension(t *testing.T) {
	assert.Error(t, WriteFile(filepath.Join(t.TempDir(), "exclusions.toml"), sample()))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	assert.Equal(t, "application/yaml", f.ContentType())
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
