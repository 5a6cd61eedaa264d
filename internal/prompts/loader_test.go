package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("estimator.json", "estimate-macros")
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "JSON array")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("estimator.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_ValidPrompt(t *testing.T) {
	ClearCache()

	assert.NotPanics(t, func() {
		prompt := MustGet("estimator.json", "estimate-macros")
		assert.NotEmpty(t, prompt)
	})
}

func TestFormat(t *testing.T) {
	template := "Hello {{.Name}}, welcome to {{.Company}}!"
	data := map[string]string{
		"Name":    "Alice",
		"Company": "Acme Corp",
	}

	result := Format(template, data)
	assert.Equal(t, "Hello Alice, welcome to Acme Corp!", result)
}

func TestFormat_NoPlaceholders(t *testing.T) {
	template := "No placeholders here"
	data := map[string]string{"Key": "Value"}

	result := Format(template, data)
	assert.Equal(t, template, result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	data := map[string]string{}

	result := Format(template, data)
	assert.Equal(t, template, result) // Placeholder remains
}

func TestCaching(t *testing.T) {
	ClearCache()

	// First call loads from file
	prompt1, err := Get("estimator.json", "estimate-macros")
	require.NoError(t, err)

	// Second call should use cache
	prompt2, err := Get("estimator.json", "estimate-macros")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}

func TestFormatStrict(t *testing.T) {
	_, err := FormatStrict("Hello {{.Name}} from {{.Company}}", map[string]string{"Name": "Ana"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Company")

	out, err := FormatStrict("Hello {{.Name}}", map[string]string{"Name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ana", out)
}

func TestEstimatorPrompt_Placeholders(t *testing.T) {
	prompt := MustGet("estimator.json", "estimate-macros")

	assert.Equal(t, []string{"CarbField", "Count", "FatField", "Items", "KcalField", "ProteinField"}, Placeholders(prompt))
}
