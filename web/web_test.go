package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeKeepsLineBreaks(t *testing.T) {
	out := string(Sanitize("## Steps\n\n1. open <b>dashboard</b>\n2. wait<script>alert(1)</script>"))
	assert.Equal(t, "## Steps\n\n1. open <b>dashboard</b>\n2. wait", out)
}

func TestTemplatesParse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)
	assert.NotNil(t, tmpl.Lookup("gitlab_issues"))
}
