package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "pothole on 5th street", SanitizeInput("  pothole on 5th street "))
	assert.Equal(t, "&lt;b&gt;broken&lt;/b&gt; light", SanitizeInput("<b>broken</b> light"))
}

func TestContainsSuspicious(t *testing.T) {
	assert.True(t, ContainsSuspicious(`<script>alert(1)</script>`))
	assert.True(t, ContainsSuspicious(`img onerror=x`))
	assert.True(t, ContainsSuspicious("{{template}}"))
	assert.False(t, ContainsSuspicious("garbage not collected for 2 weeks"))
	assert.False(t, ContainsSuspicious("water < 1 hour per day"), "bare comparison is not an injection")
}

func TestNormalizeReportID(t *testing.T) {
	assert.Equal(t, "ce-ab12cd34", NormalizeReportID("  CE-AB12CD34 "))
}
