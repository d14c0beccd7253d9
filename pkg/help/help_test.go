package help

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQUICKREFNonEmpty(t *testing.T) {
	require.NotEmpty(t, QUICKREF)
}

func TestQUICKREFContainsVersion(t *testing.T) {
	assert.Contains(t, QUICKREF, Version)
}

func TestQUICKREFListsTopics(t *testing.T) {
	for _, topic := range TopicList {
		assert.Contains(t, QUICKREF, topic)
	}
}

func TestTopicListMatchesTopics(t *testing.T) {
	for _, name := range TopicList {
		assert.Contains(t, Topics, name)
	}
	assert.Len(t, Topics, len(TopicList))
}

func TestTopicsNonEmpty(t *testing.T) {
	for name, content := range Topics {
		assert.NotEmpty(t, content, "topic %q", name)
	}
}

func TestErrorsTopicListsCodes(t *testing.T) {
	for _, code := range []string{"E_UNDEFINED_VARIABLE", "E_DIVISION_BY_ZERO", "E_PARSE", "E_LEX"} {
		assert.Contains(t, Topics["errors"], code)
	}
}

func TestMatchTopicExact(t *testing.T) {
	name, content, err := MatchTopic("syntax")
	require.NoError(t, err)
	assert.Equal(t, "syntax", name)
	assert.NotEmpty(t, content)
}

func TestMatchTopicPrefix(t *testing.T) {
	tests := map[string]string{
		"syn":  "syntax",
		"err":  "errors",
		"ex":   "examples",
		"CONF": "config",
		" tr ": "trace",
	}
	for query, want := range tests {
		name, _, err := MatchTopic(query)
		if assert.NoError(t, err, "MatchTopic(%q)", query) {
			assert.Equal(t, want, name, "MatchTopic(%q)", query)
		}
	}
}

func TestMatchTopicUnknown(t *testing.T) {
	for _, q := range []string{"nonexistent", ""} {
		_, _, err := MatchTopic(q)
		assert.Error(t, err, "query %q", q)
	}
}

func TestMatchTopicAmbiguous(t *testing.T) {
	_, _, err := MatchTopic("e")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "errors")
	assert.Contains(t, err.Error(), "examples")
}

func TestMatchTopicAllExact(t *testing.T) {
	for _, topic := range TopicList {
		name, content, err := MatchTopic(topic)
		if assert.NoError(t, err, "MatchTopic(%q)", topic) {
			assert.Equal(t, topic, name)
			assert.NotEmpty(t, content)
		}
	}
}
