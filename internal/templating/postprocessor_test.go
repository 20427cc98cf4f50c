package templating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexReplaceProcessor_IndentationNormalization(t *testing.T) {
	processor, err := NewRegexReplaceProcessor("^[ ]+", "  ")
	require.NoError(t, err)

	input := "global\n    daemon\n        timeout 5s"
	output, err := processor.Process(input)
	require.NoError(t, err)

	expected := "global\n  daemon\n  timeout 5s"
	assert.Equal(t, expected, output)
}

func TestRegexReplaceProcessor_InvalidPattern(t *testing.T) {
	_, err := NewRegexReplaceProcessor("[invalid(", "x")
	assert.Error(t, err)
}

func TestRegexReplaceProcessor_EmptyInput(t *testing.T) {
	processor, err := NewRegexReplaceProcessor("a", "b")
	require.NoError(t, err)

	output, err := processor.Process("")
	require.NoError(t, err)
	assert.Equal(t, "", output)
}

func TestNewPostProcessor_RegexReplace(t *testing.T) {
	config := PostProcessorConfig{
		Type: PostProcessorTypeRegexReplace,
		Params: map[string]string{
			"pattern": "a",
			"replace": "b",
		},
	}

	processor, err := NewPostProcessor(config)
	require.NoError(t, err)
	require.NotNil(t, processor)
}

func TestNewPostProcessor_MissingPattern(t *testing.T) {
	config := PostProcessorConfig{
		Type:   PostProcessorTypeRegexReplace,
		Params: map[string]string{"replace": "b"},
	}

	_, err := NewPostProcessor(config)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pattern")
}

func TestNewPostProcessor_MissingReplace(t *testing.T) {
	config := PostProcessorConfig{
		Type:   PostProcessorTypeRegexReplace,
		Params: map[string]string{"pattern": "a"},
	}

	_, err := NewPostProcessor(config)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "replace")
}

func TestNewPostProcessor_UnknownType(t *testing.T) {
	config := PostProcessorConfig{
		Type:   "unknown_type",
		Params: map[string]string{"pattern": "a", "replace": "b"},
	}

	_, err := NewPostProcessor(config)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown post-processor type")
}

func TestTemplateEngine_WithPostProcessors(t *testing.T) {
	templates := map[string]string{
		"reconcile.sls": "global\n    daemon\n        timeout 5s",
	}
	root := writeTemplates(t, templates)

	postProcessorConfigs := map[string][]PostProcessorConfig{
		"reconcile.sls": {
			{
				Type: PostProcessorTypeRegexReplace,
				Params: map[string]string{
					"pattern": "^[ ]+",
					"replace": "  ",
				},
			},
		},
	}

	engine, err := New(root, templates, nil, nil, postProcessorConfigs)
	require.NoError(t, err)

	output, err := engine.Render("reconcile.sls", nil)
	require.NoError(t, err)

	expected := "global\n  daemon\n  timeout 5s"
	assert.Equal(t, expected, output)
}

func TestTemplateEngine_MultiplePostProcessors(t *testing.T) {
	templates := map[string]string{
		"test": "  line1\n    line2\n      line3",
	}
	root := writeTemplates(t, templates)

	postProcessorConfigs := map[string][]PostProcessorConfig{
		"test": {
			{
				Type: PostProcessorTypeRegexReplace,
				Params: map[string]string{"pattern": "^[ ]+", "replace": "  "},
			},
			{
				Type: PostProcessorTypeRegexReplace,
				Params: map[string]string{"pattern": "line", "replace": "row"},
			},
		},
	}

	engine, err := New(root, templates, nil, nil, postProcessorConfigs)
	require.NoError(t, err)

	output, err := engine.Render("test", nil)
	require.NoError(t, err)

	expected := "  row1\n  row2\n  row3"
	assert.Equal(t, expected, output)
}

func TestTemplateEngine_PostProcessorError(t *testing.T) {
	templates := map[string]string{"test": "content"}
	root := writeTemplates(t, templates)

	postProcessorConfigs := map[string][]PostProcessorConfig{
		"test": {
			{
				Type: PostProcessorTypeRegexReplace,
				Params: map[string]string{"pattern": "[invalid(", "replace": "replacement"},
			},
		},
	}

	_, err := New(root, templates, nil, nil, postProcessorConfigs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create post-processor")
}

func TestTemplateEngine_NoPostProcessors(t *testing.T) {
	templates := map[string]string{"test": "  content with spaces"}
	root := writeTemplates(t, templates)

	engine, err := New(root, templates, nil, nil, nil)
	require.NoError(t, err)

	output, err := engine.Render("test", nil)
	require.NoError(t, err)
	assert.Equal(t, "  content with spaces", output)
}
